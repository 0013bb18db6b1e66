package sqsdispatch

// TenantGroup holds the deliveries that share a tenant code, in arrival order.
type TenantGroup struct {
	Code       string
	Deliveries []Delivery
}

// Partitions is the result of routing a batch by tenant.
type Partitions struct {
	// Untenanted holds deliveries without a tenant code.
	Untenanted []Delivery

	// Tenants holds one group per tenant code, ordered by the first
	// appearance of each code in the input.
	Tenants []TenantGroup
}

// TenantRouter partitions deliveries by the tenant attribute of their records.
type TenantRouter struct {
	attribute string
}

// NewTenantRouter returns a router reading the given attribute name. An empty
// name selects DefaultTenantAttribute.
func NewTenantRouter(attribute string) TenantRouter {
	if attribute == "" {
		attribute = DefaultTenantAttribute
	}
	return TenantRouter{attribute: attribute}
}

// Attribute returns the message attribute name the router reads.
func (t TenantRouter) Attribute() string { return t.attribute }

// Tenant returns the tenant code of r.
func (t TenantRouter) Tenant(r Record) (string, bool) {
	return TenantCode(r.Attributes, t.attribute)
}

// Partition splits deliveries into an un-tenanted group and per-tenant groups.
// Relative order within every output group matches the input.
func (t TenantRouter) Partition(deliveries []Delivery) Partitions {
	var p Partitions
	index := make(map[string]int)
	for _, d := range deliveries {
		code, ok := t.Tenant(d.Record)
		if !ok {
			p.Untenanted = append(p.Untenanted, d)
			continue
		}
		i, seen := index[code]
		if !seen {
			i = len(p.Tenants)
			index[code] = i
			p.Tenants = append(p.Tenants, TenantGroup{Code: code})
		}
		p.Tenants[i].Deliveries = append(p.Tenants[i].Deliveries, d)
	}
	return p
}

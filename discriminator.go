package sqsdispatch

// Discriminator is a cheap predicate over a View. The resolver uses
// discriminators to recognize content references before decoding them.
type Discriminator interface {
	Match(v View) bool
}

// HasFields returns a Discriminator that matches when all paths exist.
func HasFields(paths ...string) Discriminator {
	return hasFields{paths: paths}
}

type hasFields struct {
	paths []string
}

func (d hasFields) Match(v View) bool {
	for _, p := range d.paths {
		if !v.HasField(p) {
			return false
		}
	}
	return true
}

// StringFields returns a Discriminator that matches when every path holds a
// non-empty string.
func StringFields(paths ...string) Discriminator {
	return stringFields{paths: paths}
}

type stringFields struct {
	paths []string
}

func (d stringFields) Match(v View) bool {
	for _, p := range d.paths {
		if s, ok := v.GetString(p); !ok || s == "" {
			return false
		}
	}
	return true
}

// IsObject returns a Discriminator that matches when path holds an object.
func IsObject(path string) Discriminator {
	return isObject{path: path}
}

type isObject struct {
	path string
}

func (d isObject) Match(v View) bool {
	return v.IsObject(d.path)
}

// And returns a Discriminator that matches when all discriminators match.
func And(ds ...Discriminator) Discriminator {
	return and{ds: ds}
}

type and struct {
	ds []Discriminator
}

func (d and) Match(v View) bool {
	for _, disc := range d.ds {
		if !disc.Match(v) {
			return false
		}
	}
	return true
}

// Or returns a Discriminator that matches when any discriminator matches.
func Or(ds ...Discriminator) Discriminator {
	return or{ds: ds}
}

type or struct {
	ds []Discriminator
}

func (d or) Match(v View) bool {
	for _, disc := range d.ds {
		if disc.Match(v) {
			return true
		}
	}
	return false
}

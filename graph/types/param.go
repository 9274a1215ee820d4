package types

import "net/url"

// Parameter is a single key/value pair of a form-encoded request body.
type Parameter struct {
	Name  string
	Value string
}

// Parameters is an ordered list of request parameters. Order only matters
// for readability.
type Parameters []Parameter

// Get returns the value of the first parameter with the given name.
func (p Parameters) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}

	return "", false
}

// Has tells if a parameter with the given name exists.
func (p Parameters) Has(name string) bool {
	_, ok := p.Get(name)
	return ok
}

// Values converts the parameters to url.Values.
func (p Parameters) Values() url.Values {
	vals := url.Values{}

	for _, param := range p {
		vals.Add(param.Name, param.Value)
	}

	return vals
}

// Encode returns the parameters as an "application/x-www-form-urlencoded"
// body.
func (p Parameters) Encode() string {
	return p.Values().Encode()
}

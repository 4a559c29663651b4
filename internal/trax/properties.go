package trax

import (
	"maps"
	"slices"
	"strconv"
)

// Properties are named scalar values attached to a message or an object.
type Properties map[string]string

func (p Properties) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

func (p Properties) GetFloat(key string, def float32) float32 {
	v, ok := p[key]
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return def
	}
	return float32(f)
}

func (p Properties) GetInt(key string, def int) int {
	v, ok := p[key]
	if !ok {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func (p Properties) GetBool(key string, def bool) bool {
	v, ok := p[key]
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func (p Properties) SetFloat(key string, v float32) {
	p[key] = strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func (p Properties) SetInt(key string, v int) {
	p[key] = strconv.Itoa(v)
}

func (p Properties) SetBool(key string, v bool) {
	p[key] = strconv.FormatBool(v)
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	return slices.Sorted(maps.Keys(p))
}

func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

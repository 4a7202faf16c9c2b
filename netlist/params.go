// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package netlist

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// paramNames returns the YAML keys of the fields of struct type typ.
//
// By default, the key is the field name in lowercase. A specific key can be
// forced with a yaml tag: `yaml:"key"`. Fields tagged `yaml:",inline"` have
// their own fields merged in.
//
func paramNames(typ reflect.Type, names map[string]bool) {
	n := typ.NumField()
	for i := 0; i < n; i++ {
		f := typ.Field(i)
		if f.PkgPath != "" && !f.Anonymous {
			continue
		}
		key := strings.ToLower(f.Name)
		if tag, ok := f.Tag.Lookup("yaml"); ok {
			tv := strings.Split(tag, ",")
			if tv[0] == "-" {
				continue
			}
			if len(tv) > 1 && tv[1] == "inline" && f.Type.Kind() == reflect.Struct {
				paramNames(f.Type, names)
				continue
			}
			if tv[0] != "" {
				key = tv[0]
			}
		}
		names[key] = true
	}
}

// decodeParams decodes the parameters of a block into v, which must be a
// pointer to a struct. Keys that do not match any field are errors.
//
func decodeParams(block string, node *yaml.Node, v interface{}) error {
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("%s: line %d: parameters must be a mapping", block, node.Line)
	}
	typ := reflect.TypeOf(v)
	if typ.Kind() != reflect.Ptr || typ.Elem().Kind() != reflect.Struct {
		return errors.Errorf("%s: unsupported parameter type %s", block, typ)
	}
	known := make(map[string]bool)
	paramNames(typ.Elem(), known)
	for i := 0; i < len(node.Content); i += 2 {
		k := node.Content[i]
		if !known[k.Value] {
			return errors.Errorf("%s: line %d: unknown parameter %q", block, k.Line, k.Value)
		}
	}
	return errors.Wrapf(node.Decode(v), "%s: parameters", block)
}

package memstore

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/dalemusser/homeready/internal/app/system/docstore"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// canon round-trips v through bson so Go values compare equal to stored ones.
func canon(v interface{}) (interface{}, error) {
	raw, err := bson.Marshal(bson.M{"v": v})
	if err != nil {
		return nil, fmt.Errorf("memstore: encode value %T: %w", v, err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("memstore: decode value %T: %w", v, err)
	}
	return m["v"], nil
}

func clone(doc bson.M) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var out bson.M
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func setFields(doc bson.M, fields bson.M) error {
	for k, v := range fields {
		cv, err := canon(v)
		if err != nil {
			return err
		}
		doc[k] = cv
	}
	return nil
}

func applyUpdate(doc bson.M, u docstore.Update) error {
	if err := setFields(doc, u.Set); err != nil {
		return err
	}
	for k, v := range u.AddToSet {
		arr, err := asArray(doc[k], k)
		if err != nil {
			return err
		}
		cv, err := canon(v)
		if err != nil {
			return err
		}
		if !containsValue(arr, cv) {
			arr = append(arr, cv)
		}
		doc[k] = arr
	}
	for k, v := range u.Pull {
		arr, err := asArray(doc[k], k)
		if err != nil {
			return err
		}
		cv, err := canon(v)
		if err != nil {
			return err
		}
		kept := bson.A{}
		for _, el := range arr {
			if !valuesEqual(el, cv) {
				kept = append(kept, el)
			}
		}
		doc[k] = kept
	}
	return nil
}

func asArray(v interface{}, field string) (bson.A, error) {
	switch a := v.(type) {
	case nil:
		return bson.A{}, nil
	case bson.A:
		return append(bson.A{}, a...), nil
	case []interface{}:
		return append(bson.A{}, a...), nil
	default:
		return nil, fmt.Errorf("field %q is %T, not an array", field, v)
	}
}

func containsValue(arr bson.A, v interface{}) bool {
	for _, el := range arr {
		if valuesEqual(el, v) {
			return true
		}
	}
	return false
}

func matchAll(doc bson.M, filters []docstore.Filter) bool {
	for _, f := range filters {
		switch f.Op {
		case docstore.Eq:
			if !valuesEqual(doc[f.Field], f.Value) {
				return false
			}
		case docstore.Contains:
			arr, ok := doc[f.Field].(bson.A)
			if !ok || !containsValue(arr, f.Value) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func matchWhere(doc bson.M, where bson.M) (bool, error) {
	for k, v := range where {
		cv, err := canon(v)
		if err != nil {
			return false, err
		}
		if !valuesEqual(doc[k], cv) {
			return false, nil
		}
	}
	return true, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func valuesEqual(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	return reflect.DeepEqual(a, b)
}

// compare orders missing values first, then numbers, strings, booleans and
// dates; values of different kinds order by that kind rank.
func compare(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 3:
		ba, bb := a.(bool), b.(bool)
		switch {
		case !ba && bb:
			return -1
		case ba && !bb:
			return 1
		}
	case 4:
		da, db := a.(primitive.DateTime), b.(primitive.DateTime)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		}
	}
	return 0
}

func rank(v interface{}) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case bool:
		return 3
	case primitive.DateTime:
		return 4
	}
	return 5
}

func keyPart(v interface{}) string {
	if f, ok := toFloat(v); ok {
		return fmt.Sprintf("n:%v", f)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

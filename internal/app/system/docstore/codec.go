package docstore

import (
	"fmt"
	"reflect"

	"go.mongodb.org/mongo-driver/bson"
)

// Encode converts doc into a bson.M and stamps its _id.
func Encode(doc interface{}, id string) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode %T: %w", doc, err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("docstore: encode %T: %w", doc, err)
	}
	if m == nil {
		m = bson.M{}
	}
	m["_id"] = id
	return m, nil
}

// DecodeOne decodes a stored document into out.
func DecodeOne(m bson.M, out interface{}) error {
	raw, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("docstore: decode: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("docstore: decode into %T: %w", out, err)
	}
	return nil
}

// DecodeAll decodes stored documents into out, which must point to a slice.
// The slice is replaced, never appended to; an empty result yields an empty
// (non-nil) slice.
func DecodeAll(docs []bson.M, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("docstore: out must be a pointer to a slice, got %T", out)
	}
	sv := rv.Elem()
	et := sv.Type().Elem()
	res := reflect.MakeSlice(sv.Type(), 0, len(docs))
	for _, m := range docs {
		ptr := reflect.New(et)
		if err := DecodeOne(m, ptr.Interface()); err != nil {
			return err
		}
		res = reflect.Append(res, ptr.Elem())
	}
	sv.Set(res)
	return nil
}

package persist

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"gopkg.in/yaml.v3"
)

// Codec turns a state value into bytes and back. Decode receives a
// template, normally the bundle's initial state, and returns a value of the
// template's concrete type. A nil template decodes into the codec's generic
// representation.
type Codec interface {
	Name() string
	Encode(v any) ([]byte, error)
	Decode(data []byte, template any) (any, error)
}

// decodeInto allocates a value of template's type, lets unmarshal fill it
// and returns it by value.
func decodeInto(template any, unmarshal func(ptr any) error) (any, error) {
	if template == nil {
		var v any
		if err := unmarshal(&v); err != nil {
			return nil, err
		}
		return v, nil
	}

	ptr := reflect.New(reflect.TypeOf(template))
	if err := unmarshal(ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// JSONCodec encodes snapshots as JSON.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, template any) (any, error) {
	return decodeInto(template, func(ptr any) error {
		return json.Unmarshal(data, ptr)
	})
}

// YAMLCodec encodes snapshots as YAML.
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Encode(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func (YAMLCodec) Decode(data []byte, template any) (any, error) {
	return decodeInto(template, func(ptr any) error {
		return yaml.Unmarshal(data, ptr)
	})
}

// ProtoCodec encodes snapshots as a binary google.protobuf.Value. States go
// through their JSON form first, so any JSON-representable state is
// supported and decoding into a typed template is lossless for the same
// set of types.
type ProtoCodec struct{}

func (ProtoCodec) Name() string { return "proto" }

func (ProtoCodec) Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var val structpb.Value
	if err := protojson.Unmarshal(raw, &val); err != nil {
		return nil, fmt.Errorf("state to protobuf value: %w", err)
	}
	return proto.Marshal(&val)
}

func (ProtoCodec) Decode(data []byte, template any) (any, error) {
	var val structpb.Value
	if err := proto.Unmarshal(data, &val); err != nil {
		return nil, err
	}

	if template == nil {
		return val.AsInterface(), nil
	}

	raw, err := protojson.Marshal(&val)
	if err != nil {
		return nil, err
	}
	return decodeInto(template, func(ptr any) error {
		return json.Unmarshal(raw, ptr)
	})
}

var (
	codecs = map[string]Codec{
		"json":  JSONCodec{},
		"yaml":  YAMLCodec{},
		"proto": ProtoCodec{},
	}
	codecsMu sync.RWMutex
)

// GetCodec returns the codec registered under name. json, yaml and proto
// are registered by default.
func GetCodec(name string) (Codec, error) {
	codecsMu.RLock()
	defer codecsMu.RUnlock()

	c, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCodec, name)
	}
	return c, nil
}

// RegisterCodec adds or replaces a named codec.
func RegisterCodec(name string, c Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()

	codecs[name] = c
}

// CodecNames lists the registered codec names in sorted order.
func CodecNames() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()

	names := make([]string, 0, len(codecs))
	for n := range codecs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

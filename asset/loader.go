package asset

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Loader converts raw file content into a typed asset.
type Loader[T any] interface {
	Load(data []byte) (T, error)
}

// LoaderFunc adapts a function to a Loader.
type LoaderFunc[T any] func(data []byte) (T, error)

func (f LoaderFunc[T]) Load(data []byte) (T, error) { return f(data) }

// YAMLLoader decodes a YAML document into T.
type YAMLLoader[T any] struct {
	// KnownFields rejects documents with keys that T does not declare.
	KnownFields bool
}

func (l YAMLLoader[T]) Load(data []byte) (T, error) {
	var v T
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(l.KnownFields)
	if err := dec.Decode(&v); err != nil {
		return v, fmt.Errorf("%w: yaml: %w", ErrDecodeFailed, err)
	}
	return v, nil
}

// TOMLLoader decodes a TOML document into T.
type TOMLLoader[T any] struct{}

func (TOMLLoader[T]) Load(data []byte) (T, error) {
	var v T
	if _, err := toml.Decode(string(data), &v); err != nil {
		return v, fmt.Errorf("%w: toml: %w", ErrDecodeFailed, err)
	}
	return v, nil
}

// Text is a UTF-8 text asset.
type Text string

// TextLoader loads a file verbatim as Text.
type TextLoader struct{}

func (TextLoader) Load(data []byte) (Text, error) { return Text(data), nil }

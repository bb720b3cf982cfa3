package model

import (
	"encoding/gob"
	"io"
	"os"

	"github.com/harukisato/tabstack/pkg/errors"
)

// SaveModel writes any gob-encodable artifact to a file. Transform artifacts
// and trained models serialize independently and replay without access to the
// original training data.
func SaveModel(artifact interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer file.Close()
	return SaveModelToWriter(artifact, file)
}

// LoadModel reads a gob-encoded artifact from a file into artifact, which must
// be a pointer.
func LoadModel(artifact interface{}, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return LoadModelFromReader(artifact, file)
}

// SaveModelToWriter writes an artifact to w.
func SaveModelToWriter(artifact interface{}, w io.Writer) error {
	if err := gob.NewEncoder(w).Encode(artifact); err != nil {
		return errors.Wrap(err, "failed to encode artifact")
	}
	return nil
}

// LoadModelFromReader reads an artifact from r into artifact (a pointer).
func LoadModelFromReader(artifact interface{}, r io.Reader) error {
	if err := gob.NewDecoder(r).Decode(artifact); err != nil {
		return errors.Wrap(err, "failed to decode artifact")
	}
	return nil
}

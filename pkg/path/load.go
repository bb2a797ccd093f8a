package path

import (
	"encoding/json"
	"io"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/gwillem/pathtrack/pkg/robot"
)

// Load reads a recorded path file: a JSON array of localization readings.
// Only the positions are kept.
func Load(file string) (*Path, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "open path file")
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", file)
	}
	return p, nil
}

// Decode parses a recorded path from r.
func Decode(r io.Reader) (*Path, error) {
	var docs []robot.LocalizationDoc
	if err := json.NewDecoder(r).Decode(&docs); err != nil {
		return nil, errors.Wrap(err, "parse path JSON")
	}

	points := make([]r3.Vector, 0, len(docs))
	for _, doc := range docs {
		points = append(points, doc.ToPose().Position)
	}
	return New(points), nil
}

// Save writes poses in the recorded path file format.
func Save(w io.Writer, poses []robot.Pose) error {
	docs := make([]robot.LocalizationDoc, 0, len(poses))
	for i, p := range poses {
		docs = append(docs, robot.NewLocalizationDoc(p, int64(i)))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(docs), "encode path JSON")
}

package deepForest

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ReadCSVDataSet reads "label,f1,f2,..." records from r. Spaces around values
// are ignored. At most limit records are read when limit is positive.
func ReadCSVDataSet(r io.Reader, limit int) (DataSet, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var ds DataSet
	for limit <= 0 || len(ds) < limit {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "read record %d", len(ds))
		}

		example, err := decodeCSVRecord(rec)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", len(ds))
		}
		if len(ds) > 0 && len(example.Features) != ds.FeatureCount() {
			return nil, errors.Wrapf(&FeatureArityError{Expected: ds.FeatureCount(), Got: len(example.Features)}, "record %d", len(ds))
		}
		ds = append(ds, example)
	}
	if len(ds) == 0 {
		return nil, ErrEmptyDataSet
	}
	return ds, nil
}

func decodeCSVRecord(rec []string) (Example, error) {
	var example Example
	if len(rec) < 2 {
		return example, errors.Errorf("expected a label and at least one feature, got %d values", len(rec))
	}

	label, err := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
	if err != nil {
		return example, errors.Wrap(err, "label")
	}
	example.Label = label
	example.Features = make([]float64, len(rec)-1)
	for i, field := range rec[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return example, errors.Wrapf(err, "feature %d", i)
		}
		example.Features[i] = v
	}
	return example, nil
}

// LoadCSVFile reads a data set from a csv file.
func LoadCSVFile(path string, limit int) (DataSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	ds, err := ReadCSVDataSet(f, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	log.WithField("file", path).Infof("loaded %d examples with %d features", len(ds), ds.FeatureCount())
	return ds, nil
}

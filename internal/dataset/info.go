// Package dataset describes the shape of the classification dataset a topology is built for.
// Loading and preparing samples belongs to the data-preparation side; only counts and names
// cross into this module.
package dataset

import (
	"errors"
	"fmt"
)

var ErrMalformedInfo = errors.New("malformed dataset info")

// Info is supplied once at startup by the data-preparation collaborator.
type Info struct {
	Name         string   `json:"name"`
	FeatureCount int      `json:"feature_count"`
	ClassCount   int      `json:"class_count"`
	FeatureNames []string `json:"feature_names,omitempty"`
	ClassNames   []string `json:"class_names,omitempty"`
}

// Validate reports zero counts and names that disagree with the counts.
// Name lists are optional.
func (i Info) Validate() error {
	if i.FeatureCount <= 0 {
		return fmt.Errorf("%w: feature count must be positive, got %d", ErrMalformedInfo, i.FeatureCount)
	}
	if i.ClassCount <= 0 {
		return fmt.Errorf("%w: class count must be positive, got %d", ErrMalformedInfo, i.ClassCount)
	}
	if len(i.FeatureNames) > 0 && len(i.FeatureNames) != i.FeatureCount {
		return fmt.Errorf("%w: %d feature names for %d features", ErrMalformedInfo, len(i.FeatureNames), i.FeatureCount)
	}
	if len(i.ClassNames) > 0 && len(i.ClassNames) != i.ClassCount {
		return fmt.Errorf("%w: %d class names for %d classes", ErrMalformedInfo, len(i.ClassNames), i.ClassCount)
	}
	return nil
}

// Iris is the flower-measurement dataset the tool ships with.
func Iris() Info {
	return Info{
		Name:         "iris",
		FeatureCount: 4,
		ClassCount:   3,
		FeatureNames: []string{"sepal length", "sepal width", "petal length", "petal width"},
		ClassNames:   []string{"setosa", "versicolor", "virginica"},
	}
}

// Lookup resolves a built-in dataset by name.
func Lookup(name string) (Info, error) {
	switch name {
	case "", "iris":
		return Iris(), nil
	default:
		return Info{}, fmt.Errorf("unknown dataset: %s", name)
	}
}

package ensemble

import (
	"errors"
	"fmt"
	"strings"
)

// Algorithm names a selectable classifier. Single algorithms double as backend
// names in a Registry; Stacking and HybridXGRF are composites over them.
type Algorithm string

const (
	DecisionTree       Algorithm = "decision_tree"
	LogisticRegression Algorithm = "logistic_regression"
	RandomForest       Algorithm = "random_forest"
	XGBoost            Algorithm = "xgboost"
	LightGBM           Algorithm = "lightgbm"
	CatBoost           Algorithm = "catboost"
	Stacking           Algorithm = "stacking"
	HybridXGRF         Algorithm = "hybrid_model_xg_rf"
)

var catalog = []Algorithm{
	DecisionTree,
	LogisticRegression,
	RandomForest,
	XGBoost,
	LightGBM,
	CatBoost,
	Stacking,
	HybridXGRF,
}

var (
	ErrUnknownAlgorithm   = errors.New("unknown algorithm")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNoTarget           = errors.New("feature table has no labeled rows")
	ErrNotTrained         = errors.New("ensemble has not been trained")
	ErrEmptyTable         = errors.New("feature table is empty")
	ErrEmptySplit         = errors.New("chronological split produced an empty partition")
)

// Catalog lists every algorithm in a stable order.
func Catalog() []Algorithm {
	return append([]Algorithm(nil), catalog...)
}

func ParseAlgorithm(name string) (Algorithm, error) {
	candidate := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	for _, a := range catalog {
		if a == candidate {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

func (a Algorithm) Composite() bool {
	return a == Stacking || a == HybridXGRF
}

func (a Algorithm) String() string {
	return string(a)
}

func unavailable(backend Algorithm) error {
	return fmt.Errorf("%w: %s", ErrBackendUnavailable, backend)
}

package rating

import "fmt"

// ByName resolves a configured algorithm name to a Func.
func ByName(name string) (Func, error) {
	switch name {
	case "", "weng-lin", "openskill":
		return NewWengLin(), nil
	case "glicko2":
		return NewGlicko2(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
	}
}

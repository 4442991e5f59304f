package sources

import (
	"fmt"
	"os"

	"socksweep/pkg/scan"
)

// LoadFromFile reads candidates from a plain text proxy list, one host:port
// per line. Used by the retest mode to feed a previous run's output back
// through the validation pipeline.
func LoadFromFile(path string) ([]scan.Candidate, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proxy file: %w", err)
	}
	defer file.Close()

	candidates, err := ParseCandidates(file, "file")
	if err != nil {
		return nil, fmt.Errorf("failed to parse proxy file: %w", err)
	}
	return candidates, nil
}

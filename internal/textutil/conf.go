package textutil

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// ParseConf extracts key=value pairs from text split on sep. Pieces without
// "=" are ignored. Keys are trimmed and lower-cased, values are trimmed and
// keep their case. A repeated key keeps the last value.
func ParseConf(text, sep string) map[string]string {
	return parseLines(strings.Split(text, sep))
}

// ParseConfFile applies ParseConf line by line to a file.
func ParseConfFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return parseLines(lines), nil
}

func parseLines(lines []string) map[string]string {
	conf := make(map[string]string, len(lines))
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		conf[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(value)
	}
	return conf
}

// CountValues sums the sizes of every set in a map of sets.
func CountValues[K comparable, V comparable](m map[K]map[V]struct{}) int {
	total := 0
	for _, set := range m {
		total += len(set)
	}
	return total
}

// Package catalog maps well-known game titles to their store AppIDs and
// resolves user input to a product identifier.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnresolvable is returned when input is neither a known title nor a
// positive integer AppID.
var ErrUnresolvable = errors.New("product is not a known title or a positive integer AppID")

// popular is static configuration, not logic.
var popular = map[string]int{
	"Rust":           252490,
	"CS2":            730,
	"Dota 2":         570,
	"GTA V":          271590,
	"Cyberpunk 2077": 1091500,
	"Elden Ring":     1245620,
	"Valheim":        892970,
	"Palworld":       1623730,
}

// Lookup returns the AppID for a title, matching case-insensitively.
func Lookup(title string) (int, bool) {
	title = strings.TrimSpace(title)
	if id, ok := popular[title]; ok {
		return id, true
	}
	for name, id := range popular {
		if strings.EqualFold(name, title) {
			return id, true
		}
	}
	return 0, false
}

// Titles returns the known titles in alphabetical order.
func Titles() []string {
	titles := make([]string, 0, len(popular))
	for name := range popular {
		titles = append(titles, name)
	}
	sort.Strings(titles)
	return titles
}

// Resolve turns a title or a numeric AppID into a product id.
func Resolve(input string) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, fmt.Errorf("%w: empty input", ErrUnresolvable)
	}

	if id, ok := Lookup(input); ok {
		return id, nil
	}

	id, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnresolvable, input)
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrUnresolvable, id)
	}
	return id, nil
}

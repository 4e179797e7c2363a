package usecase

import (
	"strings"
	"unicode"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/variant/dto"
)

// expandMatrix returns every combination of the matrix values. The first
// attribute varies slowest. Values that differ only in case collapse to the
// first spelling.
func expandMatrix(matrix []dto.AttributeInput) ([][]dto.AttributePair, error) {
	if len(matrix) == 0 {
		return nil, nil
	}

	names := make(map[string]bool, len(matrix))
	combos := [][]dto.AttributePair{{}}
	for _, row := range matrix {
		name := strings.TrimSpace(row.Name)
		key := strings.ToLower(name)
		if names[key] {
			return nil, apperror.Validation("attribute listed twice in matrix").WithDetail("attribute", name)
		}
		names[key] = true

		values := uniqueValues(row.Values)
		if len(values) == 0 {
			return nil, apperror.Validation("attribute has no values").WithDetail("attribute", name)
		}
		next := make([][]dto.AttributePair, 0, len(combos)*len(values))
		for _, prefix := range combos {
			for _, value := range values {
				combo := make([]dto.AttributePair, len(prefix), len(prefix)+1)
				copy(combo, prefix)
				next = append(next, append(combo, dto.AttributePair{Name: name, Value: value}))
			}
		}
		combos = next
	}
	return combos, nil
}

func uniqueValues(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// checkPairs rejects a variant that names the same attribute twice.
func checkPairs(pairs []dto.AttributePair) *apperror.AppError {
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if seen[key] {
			return apperror.Validation("attribute listed twice in variant").WithDetail("attribute", p.Name)
		}
		seen[key] = true
	}
	return nil
}

func describe(pairs []dto.AttributePair) string {
	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.Name + "=" + p.Value
	}
	return strings.Join(parts, ", ")
}

// slug lowercases s and replaces every run of non-alphanumerics with a dash.
func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "variant"
	}
	return out
}

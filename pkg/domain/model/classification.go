package model

import (
	"strings"

	"github.com/upawatch/upawatch/pkg/domain/types"
)

// Classification describes how a triage class is displayed and how the backend names it
type Classification struct {
	Code       types.ClassificationCode `json:"code" yaml:"code"`
	Label      string                   `json:"label" yaml:"label"`
	Color      string                   `json:"color" yaml:"color"`
	Rank       int                      `json:"rank" yaml:"rank"` // lower is more severe
	BackendKey string                   `json:"backend_key" yaml:"backend_key"`
	aliases    []string
}

// classifications is the mapping table between codes and backend keys, most severe first.
// Aliases are compared case-insensitively after stripping '_' and '-'.
var classifications = []Classification{
	{Code: types.ClassRed, Label: "Emergência", Color: "#dc3545", Rank: 1, BackendKey: "vermelho"},
	{Code: types.ClassYellow, Label: "Urgente", Color: "#ffc107", Rank: 2, BackendKey: "amarelo"},
	{Code: types.ClassGreen, Label: "Pouco urgente", Color: "#28a745", Rank: 3, BackendKey: "verde"},
	{Code: types.ClassBlue, Label: "Não urgente", Color: "#007bff", Rank: 4, BackendKey: "azul"},
	{Code: types.ClassUntriaged, Label: "Não triado", Color: "#6c757d", Rank: 5, BackendKey: "semTriagem",
		aliases: []string{"naotriado", "aguardandotriagem", "semclassificacao"}},
}

var classificationByKey = buildClassificationIndex()

func buildClassificationIndex() map[string]types.ClassificationCode {
	index := make(map[string]types.ClassificationCode)
	for _, c := range classifications {
		index[canonicalKey(c.BackendKey)] = c.Code
		index[canonicalKey(string(c.Code))] = c.Code
		for _, alias := range c.aliases {
			index[canonicalKey(alias)] = c.Code
		}
	}
	return index
}

func canonicalKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, "_", "")
	return strings.ReplaceAll(key, "-", "")
}

// Classifications returns the mapping table ordered by severity, most severe first
func Classifications() []Classification {
	result := make([]Classification, len(classifications))
	copy(result, classifications)
	return result
}

// ClassificationOf returns the display attributes of a code.
// Unknown codes fall back to the untriaged class.
func ClassificationOf(code types.ClassificationCode) Classification {
	for _, c := range classifications {
		if c.Code == code {
			return c
		}
	}
	return classifications[len(classifications)-1]
}

// ParseClassificationKey resolves a backend key ("azul", "AZUL", "semTriagem", "NAO_TRIADO", ...) to a code
func ParseClassificationKey(key string) (types.ClassificationCode, bool) {
	code, ok := classificationByKey[canonicalKey(key)]
	return code, ok
}

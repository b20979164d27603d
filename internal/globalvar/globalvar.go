package globalvar

import (
	"context"
	"strings"

	"github.com/rkreddybogati/scalr/internal/domain/server"
)

// Variable is a named value scoped to a server. Private variables are kept
// out of webhook payloads when the subscription asks for it; system
// variables are always included.
type Variable struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Private bool   `json:"private"`
	System  bool   `json:"system"`
}

// Resolver lists the effective global variables of a server, with scope
// precedence already applied.
type Resolver interface {
	List(ctx context.Context, record *server.Record) ([]Variable, error)
}

// Interpolate substitutes {VAR_NAME} tokens in text with variable values.
// Unknown tokens are left untouched.
func Interpolate(text string, vars []Variable) string {
	if text == "" || len(vars) == 0 {
		return text
	}

	pairs := make([]string, 0, len(vars)*2)
	for _, v := range vars {
		pairs = append(pairs, "{"+v.Name+"}", v.Value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

package governance

import "context"

// Categories and option names for enforced configuration values.
const (
	CategoryGeneral = "general"

	GeneralHostnameFormat = "general.hostname_format"
)

// Policy looks up governance-enforced configuration values for an
// environment. The boolean reports whether the option is enforced at all.
type Policy interface {
	Value(ctx context.Context, envID int64, category, name string) (value string, enforced bool, err error)
}

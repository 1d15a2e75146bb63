package identifier

import (
	"fmt"
	"regexp"
	"strconv"
)

// CompanyMarker tags identifiers minted for company tenants.
const CompanyMarker = "CO"

var pattern = regexp.MustCompile(`^([A-Z]{2,3})-(\d{4,})-(` + CompanyMarker + `)-(\d{2})-(\d{5,})$`)

// Identifier holds the components of a business identifier.
type Identifier struct {
	ModuleCode     string
	ModuleSequence int
	Marker         string
	Year           int
	TenantSequence int
}

func (id Identifier) String() string {
	return fmt.Sprintf("%s-%04d-%s-%02d-%05d",
		id.ModuleCode, id.ModuleSequence, id.Marker, id.Year%100, id.TenantSequence)
}

// Compose formats a company identifier such as ADS-0001-CO-25-00001.
// Negative components are a caller bug and panic.
func Compose(moduleCode string, moduleSequence, year, tenantSequence int) string {
	if moduleSequence < 0 || year < 0 || tenantSequence < 0 {
		panic(fmt.Sprintf("identifier: negative component (%d, %d, %d)", moduleSequence, year, tenantSequence))
	}
	return Identifier{
		ModuleCode:     moduleCode,
		ModuleSequence: moduleSequence,
		Marker:         CompanyMarker,
		Year:           year,
		TenantSequence: tenantSequence,
	}.String()
}

// Parse splits a well-formed company identifier into its components.
func Parse(s string) (Identifier, error) {
	m := pattern.FindStringSubmatch(s)
	if m == nil {
		return Identifier{}, fmt.Errorf("malformed business identifier %q", s)
	}

	moduleSeq, err := strconv.Atoi(m[2])
	if err != nil {
		return Identifier{}, fmt.Errorf("module sequence: %w", err)
	}
	year, err := strconv.Atoi(m[4])
	if err != nil {
		return Identifier{}, fmt.Errorf("year: %w", err)
	}
	tenantSeq, err := strconv.Atoi(m[5])
	if err != nil {
		return Identifier{}, fmt.Errorf("tenant sequence: %w", err)
	}

	return Identifier{
		ModuleCode:     m[1],
		ModuleSequence: moduleSeq,
		Marker:         m[3],
		Year:           year,
		TenantSequence: tenantSeq,
	}, nil
}

package checker

import (
	"regexp"

	"github.com/krux/aws-analysis-tools/internal/models"
)

const (
	// ForbiddenRegionPattern matches China and US GovCloud regions, which the
	// credentials in use cannot reach
	ForbiddenRegionPattern = `^(cn-.+|.+-gov-.+)$`

	// NotApplicableEventPattern matches descriptions of events AWS has
	// already completed or canceled
	NotApplicableEventPattern = `^(\[Completed\]|\[Canceled\])`
)

// Filters decides which regions are scanned and which events are forwarded.
// Each Checker owns its own copy. The zero value applies the default patterns.
type Filters struct {
	forbiddenRegions *regexp.Regexp
	notApplicable    *regexp.Regexp
	onlyRegions      map[string]bool
}

// DefaultFilters returns the standard region and event filters
func DefaultFilters() Filters {
	return Filters{
		forbiddenRegions: regexp.MustCompile(ForbiddenRegionPattern),
		notApplicable:    regexp.MustCompile(NotApplicableEventPattern),
	}
}

// withDefaults fills in any pattern left unset
func (f Filters) withDefaults() Filters {
	if f.forbiddenRegions == nil {
		f.forbiddenRegions = regexp.MustCompile(ForbiddenRegionPattern)
	}
	if f.notApplicable == nil {
		f.notApplicable = regexp.MustCompile(NotApplicableEventPattern)
	}
	return f
}

// OnlyRegions restricts scanning to the given regions. Forbidden regions stay
// excluded even when listed. An empty list means every region.
func (f Filters) OnlyRegions(regions []string) Filters {
	if len(regions) == 0 {
		f.onlyRegions = nil
		return f
	}
	f.onlyRegions = make(map[string]bool, len(regions))
	for _, r := range regions {
		f.onlyRegions[r] = true
	}
	return f
}

// RegionAllowed reports whether region should be scanned
func (f Filters) RegionAllowed(region string) bool {
	if f.forbiddenRegions == nil {
		f = f.withDefaults()
	}
	if f.forbiddenRegions.MatchString(region) {
		return false
	}
	if f.onlyRegions != nil && !f.onlyRegions[region] {
		return false
	}
	return true
}

// Applicable reports whether event is still pending
func (f Filters) Applicable(event models.MaintenanceEvent) bool {
	if f.notApplicable == nil {
		f = f.withDefaults()
	}
	return !f.notApplicable.MatchString(event.Description)
}

package domain

import (
	"fmt"
	"strings"
)

type FilterKind string

const (
	FilterKindAll         FilterKind = "all"
	FilterKindSuccessOnly FilterKind = "success"
	FilterKindErrorsOnly  FilterKind = "errors"
	FilterKindAgent       FilterKind = "agent"
)

// Filter is a stateless predicate over action records.
type Filter struct {
	Kind  FilterKind
	Agent AgentType
}

func FilterAll() Filter {
	return Filter{Kind: FilterKindAll}
}

func FilterSuccessOnly() Filter {
	return Filter{Kind: FilterKindSuccessOnly}
}

func FilterErrorsOnly() Filter {
	return Filter{Kind: FilterKindErrorsOnly}
}

func FilterByAgent(agent AgentType) Filter {
	return Filter{Kind: FilterKindAgent, Agent: agent}
}

// ParseFilter accepts all, success, errors and agent:<type>.
func ParseFilter(raw string) (Filter, error) {
	value := strings.TrimSpace(raw)
	switch strings.ToLower(value) {
	case "", "all":
		return FilterAll(), nil
	case "success", "success-only":
		return FilterSuccessOnly(), nil
	case "errors", "errors-only", "error":
		return FilterErrorsOnly(), nil
	}

	if agent, ok := strings.CutPrefix(value, "agent:"); ok {
		agent = strings.TrimSpace(agent)
		if agent == "" {
			return Filter{}, fmt.Errorf("%w: agent type is empty", ErrInvalidFilter)
		}
		return FilterByAgent(AgentType(agent)), nil
	}

	return Filter{}, fmt.Errorf("%w: %q", ErrInvalidFilter, raw)
}

func (f Filter) Match(record ActionRecord) bool {
	switch f.Kind {
	case FilterKindSuccessOnly:
		return record.Success
	case FilterKindErrorsOnly:
		return !record.Success
	case FilterKindAgent:
		return record.AgentType == f.Agent
	default:
		return true
	}
}

func (f Filter) String() string {
	switch f.Kind {
	case FilterKindSuccessOnly, FilterKindErrorsOnly:
		return string(f.Kind)
	case FilterKindAgent:
		return "agent:" + string(f.Agent)
	default:
		return string(FilterKindAll)
	}
}

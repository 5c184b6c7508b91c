package log

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mwantia/fabric/pkg/container"
)

// LoggerTagProcessor resolves `fabric:"logger"` struct tags against the
// service container. The bare tag injects the registered base logger; the
// `fabric:"logger:<name>"` form injects a named child of it, so components
// declare their log prefix at the field instead of threading Named calls
// through constructors.
type LoggerTagProcessor struct{}

func NewLoggerTagProcessor() *LoggerTagProcessor {
	return &LoggerTagProcessor{}
}

// GetPriority places this processor ahead of the default inject processor
// (priority 0) so logger tags are claimed before generic resolution.
func (ltp *LoggerTagProcessor) GetPriority() int {
	return 50
}

// CanProcess reports whether the tag value belongs to this processor.
// Matching is case-insensitive.
func (ltp *LoggerTagProcessor) CanProcess(value string) bool {
	return strings.EqualFold(value, "logger") || strings.HasPrefix(strings.ToLower(value), "logger:")
}

// Process resolves the LoggerService registered in the container and, when
// the tag carries a name suffix, derives the named logger from it.
func (ltp *LoggerTagProcessor) Process(ctx context.Context, sc *container.ServiceContainer, field reflect.StructField, value string) (any, error) {
	ok, resolved := sc.ResolveByType(ctx, reflect.TypeOf((*LoggerService)(nil)).Elem())
	if !ok {
		return nil, fmt.Errorf("failed to resolve LoggerService for field '%s': no logger service registered", field.Name)
	}

	base, ok := resolved.(LoggerService)
	if !ok {
		return nil, fmt.Errorf("resolved logger is not a LoggerService for field '%s'", field.Name)
	}

	name := ""
	if strings.Contains(value, ":") {
		parts := strings.SplitN(value, ":", 2)
		if len(parts) == 2 {
			name = strings.TrimSpace(parts[1])
		}
	}

	if name != "" {
		return base.Named(name), nil
	}
	return base, nil
}

//go:build debug

// Package debug provides a centralized, categorized debug logging system.
// Build with -tags debug to enable logging.
package debug

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/justyntemme/shelf/internal/logging"
)

// Enabled indicates whether debug logging is active
const Enabled = true

// Category represents a debug logging category
type Category string

const (
	// Core categories
	APP   Category = "APP"   // Library lifecycle, request loop
	SCAN  Category = "SCAN"  // Directory enumeration and catalog assembly
	THUMB Category = "THUMB" // Thumbnail decode, resize, cache hits
	VIEW  Category = "VIEW"  // Filter and sort recomputation
	OPS   Category = "OPS"   // Create, rename, delete
	STORE Category = "STORE" // Thumbnail index database

	// Detailed subcategories (use sparingly - can be verbose)
	FS_ENTRY Category = "FS_ENTRY" // Individual entry metadata (very verbose)
)

var (
	// By default, all main categories are enabled
	enabledCategories = map[Category]bool{
		APP:   true,
		SCAN:  true,
		THUMB: true,
		VIEW:  true,
		OPS:   true,
		STORE: true,
		// Verbose categories disabled by default
		FS_ENTRY: false,
	}
	categoryMu sync.RWMutex
)

func init() {
	// Format: SHELF_DEBUG=SCAN,THUMB or SHELF_DEBUG=all or SHELF_DEBUG=none
	if env := os.Getenv("SHELF_DEBUG"); env != "" {
		categoryMu.Lock()
		defer categoryMu.Unlock()

		env = strings.ToUpper(env)
		switch env {
		case "ALL":
			for cat := range enabledCategories {
				enabledCategories[cat] = true
			}
		case "NONE":
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
		default:
			for cat := range enabledCategories {
				enabledCategories[cat] = false
			}
			for _, cat := range strings.Split(env, ",") {
				enabledCategories[Category(strings.TrimSpace(cat))] = true
			}
		}
	}
}

// Log logs a debug message for the specified category
func Log(cat Category, format string, args ...interface{}) {
	categoryMu.RLock()
	enabled := enabledCategories[cat]
	categoryMu.RUnlock()

	if !enabled {
		return
	}

	logging.L().Debug(fmt.Sprintf(format, args...), zap.String("category", string(cat)))
}

// Enable enables a debug category
func Enable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = true
	categoryMu.Unlock()
}

// Disable disables a debug category
func Disable(cat Category) {
	categoryMu.Lock()
	enabledCategories[cat] = false
	categoryMu.Unlock()
}

// IsEnabled returns whether a category is enabled
func IsEnabled(cat Category) bool {
	categoryMu.RLock()
	defer categoryMu.RUnlock()
	return enabledCategories[cat]
}

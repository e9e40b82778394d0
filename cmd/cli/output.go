package main

import (
	"encoding/json"
	"os"

	"github.com/fatih/color"

	"github.com/sevigo/bounty-warden/internal/core"
)

// Color definitions
var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
	boldColor    = color.New(color.Bold)
)

func statusColor(s core.Status) *color.Color {
	switch s {
	case core.StatusCredited:
		return color.New(color.FgGreen, color.Bold)
	case core.StatusPass:
		return successColor
	case core.StatusReviewing:
		return warnColor
	case core.StatusFail, core.StatusError:
		return errorColor
	default:
		return dimColor
	}
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

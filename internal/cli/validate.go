package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kinetic/internal/scenario"
)

// FileValidation is the validation result of one scenario file.
type FileValidation struct {
	Path   string            `json:"path"`
	Name   string            `json:"name,omitempty"`
	Valid  bool              `json:"valid"`
	Code   string            `json:"code,omitempty"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a scenario file.
type ValidationIssue struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>...",
		Short: "Validate scenarios without running them",
		Long: `Validate scenario files without running them.

Each path may be a file or a directory, which is searched for .yaml, .yml
and .cue files. Every problem in a file is reported, not only the first.

Examples:
  kinetic validate ./scenarios
  kinetic validate decay.yaml clock.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	if err := opts.setup(cmd.ErrOrStderr()); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	var files []string
	for _, p := range paths {
		found, err := scenario.FindFiles(p)
		if err != nil {
			return outputValidateError(formatter, scenario.ErrorCode(err), err.Error(), nil)
		}
		files = append(files, found...)
	}
	formatter.VerboseLog("Found %d scenario file(s)", len(files))

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, f := range files {
		formatter.VerboseLog("Validating %s", f)
		fv := validateFile(f)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// validateFile loads one scenario and converts any failure into issues.
func validateFile(path string) FileValidation {
	sc, err := scenario.Load(path)
	if err == nil {
		return FileValidation{Path: path, Name: sc.Name, Valid: true}
	}

	fv := FileValidation{Path: path, Code: scenario.ErrorCode(err)}

	var verrs scenario.ValidationErrors
	var lerr *scenario.LoadError
	switch {
	case errors.As(err, &verrs):
		for _, ve := range verrs {
			fv.Errors = append(fv.Errors, ValidationIssue{Field: ve.Path, Message: ve.Message})
		}
	case errors.As(err, &lerr):
		issue := ValidationIssue{Message: lerr.Message}
		if lerr.Pos.IsValid() {
			issue.Line = lerr.Pos.Line()
		}
		fv.Errors = append(fv.Errors, issue)
	default:
		fv.Errors = append(fv.Errors, ValidationIssue{Message: err.Error()})
	}
	return fv
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	for _, f := range result.Files {
		fmt.Fprintf(formatter.Writer, "✓ %s (%s)\n", f.Path, f.Name)
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d scenario(s) valid\n", len(result.Files))
	return nil
}

// outputValidateError outputs an error that prevented validation.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Unreadable paths are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every problem found.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	invalid := 0
	first := FileValidation{}
	for _, f := range result.Files {
		if !f.Valid {
			if invalid == 0 {
				first = f
			}
			invalid++
		}
	}

	if formatter.Format == "json" {
		msg := fmt.Sprintf("%d of %d scenario(s) invalid", invalid, len(result.Files))
		if err := formatter.Failure(first.Code, msg, result); err != nil {
			return err
		}
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, msg)
	}

	writeValidationText(formatter.Writer, result)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %d of %d scenario(s) invalid", invalid, len(result.Files)))
}

func writeValidationText(w io.Writer, result ValidationResult) {
	for _, f := range result.Files {
		if f.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", f.Path, f.Name)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", f.Path)
		for _, issue := range f.Errors {
			switch {
			case issue.Field != "":
				fmt.Fprintf(w, "  %s: %s: %s\n", f.Code, issue.Field, issue.Message)
			case issue.Line > 0:
				fmt.Fprintf(w, "  %s: line %d: %s\n", f.Code, issue.Line, issue.Message)
			default:
				fmt.Fprintf(w, "  %s: %s\n", f.Code, issue.Message)
			}
		}
	}
}

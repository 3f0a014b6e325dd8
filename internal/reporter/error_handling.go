package reporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"lottery-reconciliation-service/internal/auditor"
	"lottery-reconciliation-service/internal/models"
	"lottery-reconciliation-service/pkg/errors"
	"lottery-reconciliation-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and fallbacks:
// a structured format that fails is retried as console output, and a
// file that cannot be written gets a sibling backup file.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"output_format",
			config.Format,
			err,
		).WithSuggestion("use one of: console, json, csv")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// Generate renders an *auditor.Report or a *models.MergeResult.
func (srg *SafeReportGenerator) Generate(result interface{}, writer io.Writer) error {
	if err := srg.validateInputs(result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed: input validation")
		return err
	}

	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
		"kind":   fmt.Sprintf("%T", result),
	}).Debug("Starting report generation")

	if err := srg.generateWithFallback(srg.ReportGenerator, result, writer); err != nil {
		srg.logger.WithError(err).Error("Report generation failed")
		return err
	}
	return nil
}

func (srg *SafeReportGenerator) validateInputs(result interface{}, writer io.Writer) error {
	if writer == nil {
		return errors.ValidationError(errors.CodeInvalidValue, "writer", nil, nil).
			WithSuggestion("provide an output destination")
	}

	switch r := result.(type) {
	case *auditor.Report:
		if r != nil {
			return nil
		}
	case *models.MergeResult:
		if r != nil {
			return nil
		}
	default:
		return errors.ValidationError(errors.CodeInvalidValue, "result_type", fmt.Sprintf("%T", result), nil).
			WithSuggestion("provide an audit report or an import result")
	}
	return errors.ValidationError(errors.CodeInvalidValue, "result", nil, nil)
}

func render(gen *ReportGenerator, result interface{}, writer io.Writer) error {
	switch r := result.(type) {
	case *auditor.Report:
		return gen.GenerateAuditReport(r, writer)
	case *models.MergeResult:
		return gen.GenerateImportReport(r, writer)
	default:
		return fmt.Errorf("unsupported result type %T", result)
	}
}

func (srg *SafeReportGenerator) generateWithFallback(gen *ReportGenerator, result interface{}, writer io.Writer) error {
	// Render into memory first so a failing format leaves no partial output.
	var buf bytes.Buffer
	err := render(gen, result, &buf)
	if err == nil {
		if _, werr := writer.Write(buf.Bytes()); werr != nil {
			return srg.outputFallback(buf.Bytes(), writer, werr)
		}
		return nil
	}

	if gen.config.Format == FormatConsole {
		return srg.wrapGenerationError(err)
	}

	srg.logger.WithError(err).WithField("fallback_format", FormatConsole).Warn("Report format failed, falling back to console")

	fallbackConfig := *gen.config
	fallbackConfig.Format = FormatConsole
	fallback, ferr := NewReportGenerator(&fallbackConfig)
	if ferr != nil {
		return srg.wrapGenerationError(err)
	}

	buf.Reset()
	fmt.Fprintf(&buf, "NOTE: %s output failed (%v), showing console output\n\n", gen.config.Format, err)
	if ferr := render(fallback, result, &buf); ferr != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", err, ferr),
		)
	}
	if _, werr := writer.Write(buf.Bytes()); werr != nil {
		return srg.outputFallback(buf.Bytes(), writer, werr)
	}
	return nil
}

// outputFallback writes content next to a file that could not be written.
func (srg *SafeReportGenerator) outputFallback(content []byte, writer io.Writer, originalErr error) error {
	file, ok := writer.(*os.File)
	if !ok || file.Name() == "" || !isFileError(originalErr) {
		return srg.wrapGenerationError(originalErr)
	}

	backupPath := backupPath(file.Name())
	srg.logger.WithFields(logger.Fields{
		"original_file": file.Name(),
		"backup_file":   backupPath,
	}).Warn("Writing report to backup file")

	if err := os.WriteFile(backupPath, content, 0o644); err != nil {
		return errors.FileError(errors.CodeFilePermission, backupPath,
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%w", originalErr, err))
	}

	fmt.Fprintf(os.Stderr, "Warning: could not write to %s, report saved to %s\n", file.Name(), backupPath)
	return nil
}

func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return errors.InternalError(errors.CodeUnexpectedError, "report_generation", err).
		WithSuggestion("check the output destination and report format settings")
}

func backupPath(original string) string {
	dir := filepath.Dir(original)
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", strings.TrimSuffix(base, ext), ext))
}

func isFileError(err error) bool {
	if err == nil {
		return false
	}
	if os.IsPermission(err) || os.IsNotExist(err) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "no space left") || strings.Contains(msg, "bad file descriptor")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

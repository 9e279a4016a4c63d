package common

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cvcraft/internal/errors"
	"cvcraft/internal/render"
	"cvcraft/internal/types"
)

// LoadCVData reads and parses a CV data JSON file
func LoadCVData(logger *errors.Logger, filename string) (*types.CVData, error) {
	fileProcessor := NewFileProcessor(logger)

	contents, err := fileProcessor.ValidateAndReadFiles(filename)
	if err != nil {
		return nil, err
	}

	var cv types.CVData
	if err := json.Unmarshal([]byte(contents[0]), &cv); err != nil {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("Failed to parse CV data from %s", filename), err)
	}

	if strings.TrimSpace(cv.PersonalInfo.FullName) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeCVDataMissing,
			"CV data has no personalInfo.fullName", nil)
	}

	return &cv, nil
}

// RunRenderCommand encapsulates the common logic for rendering a CV data
// file to the requested output format. PDF output goes through the page
// renderer; textual formats go through the formatter registry.
func RunRenderCommand(logger *errors.Logger, cmdConfig CommandConfig, inputFile string) error {
	cv, err := LoadCVData(logger, inputFile)
	if err != nil {
		return err
	}

	if cmdConfig.OutputFormat == "pdf" {
		return renderPDF(logger, cv, cmdConfig.OutputFile, inputFile)
	}

	outputHandler := NewOutputHandler(logger)
	return outputHandler.HandleOutput(cv, cmdConfig)
}

// renderPDF writes the CV as a PDF file. An empty output path derives the
// filename from the input file; PDFs are binary so stdout is not an option.
func renderPDF(logger *errors.Logger, cv *types.CVData, outputFile, inputFile string) error {
	if outputFile == "" {
		base := strings.TrimSuffix(filepath.Base(inputFile), filepath.Ext(inputFile))
		outputFile = base + ".pdf"
	}

	fileProcessor := NewFileProcessor(logger)
	if err := fileProcessor.ValidateOutputFile(outputFile); err != nil {
		return err
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", outputFile), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && logger != nil {
			logger.Warn("Failed to close output file", "filename", outputFile, "error", cerr)
		}
	}()

	renderer := render.NewPDFRenderer(logger)
	if err := renderer.Render(cv, f); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("PDF written successfully", "file", outputFile)
	}
	return nil
}

package instrument

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultPlateIDs are passed through to Run untouched. Their meaning on the
// device side is undocumented.
var DefaultPlateIDs = [3]int{1, 2, 3}

type AssayRunRequest struct {
	ProtocolName   string
	ProtocolDBPath string
	OutputDir      string
	// OutputFileName defaults to "<unix-seconds>.txt" when empty.
	OutputFileName string
	PlateIDs       [3]int
}

// NewAssayRunRequest fills in the default plate IDs. RunAssay itself sends
// PlateIDs as given, zeros included.
func NewAssayRunRequest(protocolName, protocolDBPath, outputDir, outputFileName string) AssayRunRequest {
	return AssayRunRequest{
		ProtocolName:   protocolName,
		ProtocolDBPath: protocolDBPath,
		OutputDir:      outputDir,
		OutputFileName: outputFileName,
		PlateIDs:       DefaultPlateIDs,
	}
}

type AssayRunResult struct {
	// Path is outputDir joined with the file name. It is resolved before the
	// run is dispatched; whether the device wrote the file is not checked.
	Path     string `json:"path"`
	FileName string `json:"file_name"`
}

// Orchestrator maps an assay run onto the device's positional Run command.
type Orchestrator struct {
	executor CommandExecutor
	now      func() time.Time
	logger   *zap.Logger
}

func NewOrchestrator(executor CommandExecutor, now func() time.Time, logger *zap.Logger) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		executor: executor,
		now:      now,
		logger:   logger,
	}
}

// DefaultOutputFileName is "<unix-seconds>.txt". Two runs in the same second
// get the same name.
func DefaultOutputFileName(t time.Time) string {
	return fmt.Sprintf("%d.txt", t.Unix())
}

// RunArgs returns the 8 positional Run arguments. The output directory
// appears twice.
func RunArgs(req AssayRunRequest, fileName string) []any {
	return []any{
		req.ProtocolName,
		req.ProtocolDBPath,
		req.OutputDir,
		req.PlateIDs[0],
		req.PlateIDs[1],
		req.PlateIDs[2],
		req.OutputDir,
		fileName,
	}
}

func (o *Orchestrator) RunAssay(ctx context.Context, req AssayRunRequest) (AssayRunResult, error) {
	if strings.TrimSpace(req.ProtocolName) == "" {
		return AssayRunResult{}, &ValidationError{Field: "protocol_name", Reason: "protocol name is required"}
	}

	fileName := req.OutputFileName
	if fileName == "" {
		fileName = DefaultOutputFileName(o.now())
	}
	result := AssayRunResult{
		Path:     filepath.Join(req.OutputDir, fileName),
		FileName: fileName,
	}

	o.logger.Info("Starting assay run",
		zap.String("protocol", req.ProtocolName),
		zap.String("output", result.Path))

	if err := o.executor.Execute(ctx, CommandRun, RunArgs(req, fileName)...); err != nil {
		return AssayRunResult{}, err
	}

	return result, nil
}

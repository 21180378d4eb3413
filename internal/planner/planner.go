// Package planner implements the pipeline planner: turn a parsed Address
// plus a read/write direction into an ordered
// PipelineSpec of StageSpec entries that the executor (internal/pipeline)
// spawns as a chain of OS processes.
package planner

import (
	"fmt"

	"github.com/jn-toolkit/jn/internal/address"
	"github.com/jn-toolkit/jn/internal/jnerr"
	"github.com/jn-toolkit/jn/internal/pluginreg"
)

// Direction selects a read or write plan.
type Direction int

const (
	Read Direction = iota
	Write
)

// Role identifies a StageSpec's position in the pipeline.
type Role int

const (
	RoleProtocol Role = iota
	RoleDecompress
	RoleFormat
	RoleTransform
	RoleSink
)

func (r Role) String() string {
	switch r {
	case RoleProtocol:
		return "protocol"
	case RoleDecompress:
		return "decompress"
	case RoleFormat:
		return "format"
	case RoleTransform:
		return "transform"
	case RoleSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Shape describes a StageSpec's I/O contract.
type Shape int

const (
	ShapeBytesToBytes Shape = iota
	ShapeBytesToRecords
	ShapeRecordsToRecords
	ShapeRecordsToBytes
)

// StageSpec is one process in the pipeline.
type StageSpec struct {
	Command string
	Args    []string
	Role    Role
	Shape   Shape
	Mode    pluginreg.Mode
}

// PipelineSpec is an ordered sequence of StageSpec entries, optionally
// fanned out across multiple sub-pipelines when the source address was a
// glob.
type PipelineSpec struct {
	Stages    []StageSpec
	SourceKey string // set when this spec originated from one glob match among several
}

// Plan builds the PipelineSpec for addr in the given direction, resolving
// the format (and, when present, protocol/decompression) stage(s) against
// reg.
func Plan(addr address.Address, dir Direction, reg *pluginreg.Registry) ([]PipelineSpec, error) {
	if addr.Kind == address.KindGlob {
		return planGlob(addr, dir, reg)
	}
	spec, err := planSingle(addr, dir, reg)
	if err != nil {
		return nil, err
	}
	return []PipelineSpec{spec}, nil
}

func planGlob(addr address.Address, dir Direction, reg *pluginreg.Registry) ([]PipelineSpec, error) {
	matches, err := expandGlob(addr.Base)
	if err != nil {
		return nil, jnerr.NewPlannerError("glob", "failed to expand glob pattern", err)
	}
	if len(matches) == 0 {
		return nil, jnerr.NewPlannerError("glob", fmt.Sprintf("no files matched %q", addr.Base), nil)
	}

	specs := make([]PipelineSpec, 0, len(matches))
	for _, m := range matches {
		sub := addr
		sub.Kind = address.KindFile
		sub.Base = m
		sub.Raw = m
		spec, err := planSingle(sub, dir, reg)
		if err != nil {
			return nil, err
		}
		spec.SourceKey = m
		specs = append(specs, spec)
	}
	return specs, nil
}

func planSingle(addr address.Address, dir Direction, reg *pluginreg.Registry) (PipelineSpec, error) {
	if dir == Read {
		return planRead(addr, reg)
	}
	return planWrite(addr, reg)
}

// planRead builds: protocol* -> decompress* (outer->inner) -> format.
func planRead(addr address.Address, reg *pluginreg.Registry) (PipelineSpec, error) {
	var stages []StageSpec

	if needsProtocol(addr) {
		stage, err := protocolStage(addr, Read, reg)
		if err != nil {
			return PipelineSpec{}, err
		}
		stages = append(stages, stage)
	}

	for _, comp := range addr.Compressions { // outer -> inner order, as declared
		stage, err := compressionStage(comp, Read, reg)
		if err != nil {
			return PipelineSpec{}, err
		}
		stages = append(stages, stage)
	}

	formatStage, err := formatStage(addr, Read, reg)
	if err != nil {
		return PipelineSpec{}, err
	}
	stages = append(stages, formatStage)

	return PipelineSpec{Stages: stages}, validateShapes(stages)
}

// planWrite mirrors planRead: format -> compress* (inner->outer) -> sink.
// A stdio destination skips the format stage entirely: "-" carries no
// format_override and strips to an empty base, so there is nothing for
// pattern matching to select against, and none is needed: sinkStage's own
// stdio pseudo-stage already declares the records->bytes transition that
// writes NDJSON straight through.
func planWrite(addr address.Address, reg *pluginreg.Registry) (PipelineSpec, error) {
	var stages []StageSpec

	if addr.Kind != address.KindStdio {
		formatStage, err := formatStage(addr, Write, reg)
		if err != nil {
			return PipelineSpec{}, err
		}
		stages = append(stages, formatStage)
	}

	for i := len(addr.Compressions) - 1; i >= 0; i-- { // inner -> outer on write
		stage, err := compressionStage(addr.Compressions[i], Write, reg)
		if err != nil {
			return PipelineSpec{}, err
		}
		stages = append(stages, stage)
	}

	sink, err := sinkStage(addr, reg)
	if err != nil {
		return PipelineSpec{}, err
	}
	stages = append(stages, sink)

	return PipelineSpec{Stages: stages}, validateShapes(stages)
}

func needsProtocol(addr address.Address) bool {
	return addr.Protocol != "" || addr.Kind == address.KindURL || addr.Kind == address.KindProfileRef
}

func protocolStage(addr address.Address, dir Direction, reg *pluginreg.Registry) (StageSpec, error) {
	name := addr.Protocol
	if name == "" {
		name = "profile"
	}
	rec, ok := reg.FindByName(name, pluginreg.ModeRaw)
	if !ok {
		return StageSpec{}, jnerr.NewPlannerError("protocol", fmt.Sprintf("no plugin registered for protocol %q", name), nil)
	}
	args := append([]string{"--mode=" + protocolMode(dir), "--addr=" + addr.Base}, argsForParams(dir, addr.Parameters)...)
	return StageSpec{
		Command: rec.Path,
		Args:    args,
		Role:    RoleProtocol,
		Shape:   ShapeBytesToBytes,
		Mode:    pluginreg.ModeRaw,
	}, nil
}

func protocolMode(dir Direction) string {
	if dir == Write {
		return "write"
	}
	return "read"
}

func compressionStage(ext string, dir Direction, reg *pluginreg.Registry) (StageSpec, error) {
	rec, ok := reg.FindByName(ext, pluginreg.ModeRaw)
	if !ok {
		return StageSpec{}, jnerr.NewPlannerError("decompress", fmt.Sprintf("no plugin registered for compression %q", ext), nil)
	}
	mode := "decompress"
	if dir == Write {
		mode = "compress"
	}
	return StageSpec{
		Command: rec.Path,
		Args:    []string{"--mode=" + mode},
		Role:    roleFor(dir),
		Shape:   ShapeBytesToBytes,
		Mode:    pluginreg.ModeRaw,
	}, nil
}

func roleFor(dir Direction) Role {
	if dir == Write {
		return RoleTransform
	}
	return RoleDecompress
}

// formatStage resolves the record<->bytes converter: format_override
// bypasses pattern matching entirely and looks the plugin up by name.
func formatStage(addr address.Address, dir Direction, reg *pluginreg.Registry) (StageSpec, error) {
	mode := pluginreg.ModeRead
	if dir == Write {
		mode = pluginreg.ModeWrite
	}

	var rec *pluginreg.PluginRecord
	var ok bool
	if addr.FormatOverride != "" {
		rec, ok = reg.FindByName(addr.FormatOverride, mode)
	} else {
		rec, ok = reg.Match(strippedBase(addr), mode)
	}
	if !ok {
		return StageSpec{}, jnerr.NewPlannerError("format", fmt.Sprintf("no plugin matches address %q", addr.Raw), nil)
	}

	shape := ShapeBytesToRecords
	if dir == Write {
		shape = ShapeRecordsToBytes
	}
	return StageSpec{
		Command: rec.Path,
		Args:    append([]string{"--mode=" + string(mode)}, argsForParams(dir, addr.Parameters)...),
		Role:    RoleFormat,
		Shape:   shape,
		Mode:    mode,
	}, nil
}

// strippedBase returns addr.Base with any trailing compression suffixes
// removed, since format matching happens after compression peeling.
func strippedBase(addr address.Address) string {
	base := addr.Base
	for range addr.Compressions {
		if idx := lastDot(base); idx >= 0 {
			base = base[:idx]
		}
	}
	return base
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

func sinkStage(addr address.Address, reg *pluginreg.Registry) (StageSpec, error) {
	if addr.Kind == address.KindStdio {
		return StageSpec{Role: RoleSink, Shape: ShapeRecordsToBytes, Command: "-"}, nil
	}
	if needsProtocol(addr) {
		rec, ok := reg.FindByName(addr.Protocol, pluginreg.ModeRaw)
		if !ok {
			return StageSpec{}, jnerr.NewPlannerError("sink", fmt.Sprintf("no plugin registered for protocol %q", addr.Protocol), nil)
		}
		args := append([]string{"--mode=write", "--addr=" + addr.Base}, argsForParams(Write, addr.Parameters)...)
		return StageSpec{
			Command: rec.Path,
			Args:    args,
			Role:    RoleSink,
			Shape:   ShapeBytesToBytes,
			Mode:    pluginreg.ModeRaw,
		}, nil
	}
	return StageSpec{Role: RoleSink, Shape: ShapeBytesToBytes, Command: "file", Args: []string{addr.Base}}, nil
}

func argsForParams(dir Direction, params []address.KV) []string {
	args := make([]string, 0, len(params))
	for _, kv := range params {
		args = append(args, fmt.Sprintf("--%s=%s", kv.Key, kv.Value))
	}
	return args
}

// validateShapes enforces the stage-shape invariant: at most one
// records->bytes transition (the sink) and at most one bytes->records
// transition (the format stage), in that order along the flow.
func validateShapes(stages []StageSpec) error {
	toRecords, toBytes := 0, 0
	for i, s := range stages {
		switch s.Shape {
		case ShapeBytesToRecords:
			toRecords++
			if toBytes > 0 {
				return jnerr.NewPlannerError("shape", fmt.Sprintf("stage %d converts bytes->records after an earlier records->bytes stage", i), nil)
			}
		case ShapeRecordsToBytes:
			toBytes++
		}
	}
	if toRecords > 1 {
		return jnerr.NewPlannerError("shape", "more than one bytes->records stage in pipeline", nil)
	}
	if toBytes > 1 {
		return jnerr.NewPlannerError("shape", "more than one records->bytes stage in pipeline", nil)
	}
	return nil
}

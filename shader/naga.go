// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/hlsl"
	"github.com/gogpu/naga/ir"
	"github.com/gogpu/naga/msl"
)

// ErrNotWGSL is returned when a naga operation gets a non-WGSL source.
var ErrNotWGSL = errors.New("shader: naga needs a WGSL source")

// Language is an output of Translate.
type Language uint8

// Translation outputs.
const (
	LanguageGLSL330 Language = iota
	LanguageHLSL
	LanguageMSL
)

func (l Language) String() string {
	switch l {
	case LanguageGLSL330:
		return "glsl330"
	case LanguageHLSL:
		return "hlsl"
	case LanguageMSL:
		return "msl"
	}
	return fmt.Sprintf("Language(%d)", uint8(l))
}

// lower parses and lowers a WGSL source into naga IR.
func lower(src *Source) (*ir.Module, error) {
	if src.Target != TargetWGSL {
		return nil, fmt.Errorf("%w (got %v)", ErrNotWGSL, src.Target)
	}
	ast, err := naga.Parse(src.Fragment)
	if err != nil {
		return nil, fmt.Errorf("shader: parse %v: %w", src.Mode, err)
	}
	module, err := naga.LowerWithSource(ast, src.Fragment)
	if err != nil {
		return nil, fmt.Errorf("shader: lower %v: %w", src.Mode, err)
	}
	return module, nil
}

// Validate runs naga's front end and validator over a WGSL source.
func Validate(src *Source) error {
	module, err := lower(src)
	if err != nil {
		return err
	}
	verrs, err := naga.Validate(module)
	if err != nil {
		return fmt.Errorf("shader: validate %v: %w", src.Mode, err)
	}
	if len(verrs) > 0 {
		return fmt.Errorf("shader: validate %v: %w", src.Mode, &verrs[0])
	}
	return nil
}

// CompileSPIRV compiles a WGSL source to SPIR-V words.
func CompileSPIRV(src *Source) ([]uint32, error) {
	if src.Target != TargetWGSL {
		return nil, fmt.Errorf("%w (got %v)", ErrNotWGSL, src.Target)
	}
	spirv, err := naga.Compile(src.Fragment)
	if err != nil {
		return nil, fmt.Errorf("shader: compile %v: %w", src.Mode, err)
	}
	// SPIR-V words are little-endian.
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}

// Translate cross-compiles a WGSL source with naga. GLSL output holds the
// vertex stage followed by the fragment stage.
func Translate(src *Source, lang Language) (string, error) {
	module, err := lower(src)
	if err != nil {
		return "", err
	}
	switch lang {
	case LanguageGLSL330:
		var b strings.Builder
		for _, entry := range []string{src.VertexEntry, src.FragmentEntry} {
			out, _, err := glsl.Compile(module, glsl.Options{
				LangVersion: glsl.Version330,
				EntryPoint:  entry,
			})
			if err != nil {
				return "", fmt.Errorf("shader: glsl %s: %w", entry, err)
			}
			b.WriteString(out)
		}
		return b.String(), nil
	case LanguageHLSL:
		out, _, err := hlsl.Compile(module, hlsl.DefaultOptions())
		if err != nil {
			return "", fmt.Errorf("shader: hlsl: %w", err)
		}
		return out, nil
	case LanguageMSL:
		out, _, err := msl.Compile(module, msl.DefaultOptions())
		if err != nil {
			return "", fmt.Errorf("shader: msl: %w", err)
		}
		return out, nil
	}
	return "", fmt.Errorf("shader: unknown language %v", lang)
}

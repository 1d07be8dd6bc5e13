// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/combiner/cc"
)

var nagaModes = []struct {
	name string
	mode cc.ModeWord
	opts Options
}{
	{"constant", 0, Options{}},
	{"shade", cc.Pack(shade, cc.Formula{}, 0), Options{}},
	{"modulate", cc.Pack(modulate, cc.Formula{}, 0), Options{}},
	{"blend", cc.Pack(blend, cc.Formula{}, cc.FlagFog), Options{}},
	{"two textures", cc.Pack(affine, shade, cc.FlagAlpha), Options{}},
	{"edge fog noise", cc.Pack(modulate, modulate, cc.FlagAlpha|cc.FlagTextureEdge|cc.FlagFog|cc.FlagNoise), Options{}},
	{"three point", cc.Pack(affine, cc.Formula{}, 0), Options{ThreePoint: true}},
}

func TestWGSLCompilesWithNaga(t *testing.T) {
	for _, tt := range nagaModes {
		t.Run(tt.name, func(t *testing.T) {
			src := generate(t, tt.mode, TargetWGSL, tt.opts)
			if err := Validate(src); err != nil {
				t.Fatalf("Validate: %v\n%s", err, src.Fragment)
			}
			words, err := CompileSPIRV(src)
			if err != nil {
				t.Fatalf("CompileSPIRV: %v", err)
			}
			if len(words) == 0 || words[0] != 0x07230203 {
				t.Errorf("SPIR-V magic missing")
			}
		})
	}
}

func TestTranslate(t *testing.T) {
	src := generate(t, cc.Pack(modulate, modulate, cc.FlagAlpha), TargetWGSL, Options{})
	for _, lang := range []Language{LanguageGLSL330, LanguageHLSL, LanguageMSL} {
		out, err := Translate(src, lang)
		if err != nil {
			t.Errorf("Translate(%v): %v", lang, err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("Translate(%v) returned nothing", lang)
		}
	}
}

func TestNagaRejectsOtherTargets(t *testing.T) {
	src := generate(t, cc.Pack(modulate, cc.Formula{}, 0), TargetGLSL, Options{})
	if err := Validate(src); !errors.Is(err, ErrNotWGSL) {
		t.Errorf("Validate err = %v", err)
	}
	if _, err := CompileSPIRV(src); !errors.Is(err, ErrNotWGSL) {
		t.Errorf("CompileSPIRV err = %v", err)
	}
}

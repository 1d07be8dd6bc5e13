// Command ccdump decodes an N64 color combiner mode word and prints its
// formulas, vertex layout and generated programs.
package main

import (
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/combiner"
	"github.com/gogpu/combiner/backend"
	_ "github.com/gogpu/combiner/backend/wgpu"
	"github.com/gogpu/combiner/cc"
	"github.com/gogpu/combiner/shader"
)

func main() {
	var (
		mode       = flag.String("mode", "", "mode word, e.g. 0x01000a45")
		target     = flag.String("target", "all", "program target: glsl, hlsl, wgsl or all")
		nagaOut    = flag.String("naga", "", "translate the WGSL program with naga: validate, glsl330, hlsl or msl")
		threePoint = flag.Bool("three-point", false, "emit three-point texture filtering")
		eval       = flag.Bool("eval", false, "evaluate the combiner on a sample fragment")
		frames     = flag.Int("frames", 0, "render this many headless frames with the mode")
		device     = flag.String("device", backend.BackendRecorder, "device for -frames")
		texture    = flag.String("texture", "", "image file uploaded to texture slot 0 for -frames")
		verbose    = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		combiner.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if *mode == "" {
		flag.Usage()
		os.Exit(2)
	}
	v, err := strconv.ParseUint(*mode, 0, 32)
	if err != nil {
		log.Fatalf("Invalid mode word %q: %v", *mode, err)
	}
	m := cc.ModeWord(v)
	c := cc.Decode(m)
	opts := shader.Options{ThreePoint: *threePoint}

	printCombiner(c)

	targets, err := parseTargets(*target)
	if err != nil {
		log.Fatal(err)
	}
	for _, t := range targets {
		src, err := shader.Generate(c, t, opts)
		if err != nil {
			log.Fatalf("Generate %v: %v", t, err)
		}
		printSource(src)
	}

	if *nagaOut != "" {
		if err := runNaga(c, opts, *nagaOut); err != nil {
			log.Fatalf("naga: %v", err)
		}
	}

	if *eval {
		printEval(c)
	}

	if *frames > 0 {
		if err := render(m, *device, *frames, *threePoint, *texture); err != nil {
			log.Fatalf("Render: %v", err)
		}
	}
}

func parseTargets(name string) ([]shader.Target, error) {
	if name == "all" {
		return []shader.Target{shader.TargetGLSL, shader.TargetHLSL, shader.TargetWGSL}, nil
	}
	var targets []shader.Target
	for _, part := range strings.Split(name, ",") {
		t, err := shader.ParseTarget(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func printCombiner(c cc.Combiner) {
	fmt.Printf("mode      %v\n", c.Mode)
	fmt.Printf("color     %v  (%v)\n", c.Color(), c.Color().Shape())
	if c.Alpha {
		fmt.Printf("alpha     %v  (%v)\n", c.AlphaFormula(), c.AlphaFormula().Shape())
	}
	var flags []string
	for _, f := range []struct {
		on   bool
		name string
	}{
		{c.Alpha, "ALPHA"},
		{c.Fog, "FOG"},
		{c.TextureEdge, "TEXTURE_EDGE"},
		{c.Noise, "NOISE"},
		{c.ColorAlphaSame, "COLOR_ALPHA_SAME"},
	} {
		if f.on {
			flags = append(flags, f.name)
		}
	}
	fmt.Printf("flags     %s\n", strings.Join(flags, " "))
	fmt.Printf("inputs    %d\n", c.NumInputs)
	fmt.Printf("textures  %v\n", c.UsedTextures)

	l := shader.NewLayout(c)
	fmt.Printf("stride    %d floats (%d bytes)\n", l.StrideFloats(), l.StrideBytes())
	for _, a := range l.Attributes {
		fmt.Printf("  @%d %-10s %d floats at %d\n", a.Location, a.Name(), a.Components, a.Offset)
	}
}

func printSource(src *shader.Source) {
	fmt.Printf("\n// ---- %v ----\n", src.Target)
	if src.Vertex == src.Fragment {
		fmt.Print(src.Fragment)
		return
	}
	fmt.Printf("// vertex (%s)\n%s", src.VertexEntry, src.Vertex)
	fmt.Printf("// fragment (%s)\n%s", src.FragmentEntry, src.Fragment)
}

func runNaga(c cc.Combiner, opts shader.Options, out string) error {
	src, err := shader.Generate(c, shader.TargetWGSL, opts)
	if err != nil {
		return err
	}
	var lang shader.Language
	switch out {
	case "validate":
		if err := shader.Validate(src); err != nil {
			return err
		}
		words, err := shader.CompileSPIRV(src)
		if err != nil {
			return err
		}
		fmt.Printf("\nnaga: WGSL valid, %d SPIR-V words\n", len(words))
		return nil
	case "glsl330":
		lang = shader.LanguageGLSL330
	case "hlsl":
		lang = shader.LanguageHLSL
	case "msl":
		lang = shader.LanguageMSL
	default:
		return fmt.Errorf("unknown output %q", out)
	}
	text, err := shader.Translate(src, lang)
	if err != nil {
		return err
	}
	fmt.Printf("\n// ---- naga %v ----\n%s", lang, text)
	return nil
}

func printEval(c cc.Combiner) {
	fr := cc.Fragment{
		Texels: [2][4]float32{{0.8, 0.4, 0.2, 0.9}, {0.1, 0.6, 0.3, 0.5}},
		Fog:    [4]float32{0.5, 0.5, 0.5, 0.25},
	}
	for i := range fr.Inputs {
		s := float32(i+1) * 0.2
		fr.Inputs[i] = [4]float32{s, s / 2, 1 - s, 0.75}
	}
	rgba, keep := c.Evaluate(fr)
	fmt.Printf("\neval      texel0=%v texel1=%v\n", fr.Texels[0], fr.Texels[1])
	for i := 0; i < c.NumInputs; i++ {
		fmt.Printf("          input%d=%v\n", i+1, fr.Inputs[i])
	}
	if !keep {
		fmt.Println("          -> discarded by texture edge")
		return
	}
	fmt.Printf("          -> %v\n", rgba)
}

func render(m cc.ModeWord, device string, frames int, threePoint bool, texture string) error {
	r, err := combiner.NewRenderer(
		combiner.WithDeviceName(device),
		combiner.WithThreePointFiltering(threePoint),
		combiner.WithFatalHandler(func(err error) { log.Fatal(err) }),
	)
	if err != nil {
		return err
	}
	defer r.Close()

	wm := combiner.NewHeadlessWindow(320, 240, frames)
	if err := r.OnResize(wm.Dimensions()); err != nil {
		return err
	}
	if err := r.Init(); err != nil {
		return err
	}

	p := r.CreateAndLoadNewShader(m)
	for slot, used := range p.UsedTextures {
		if !used {
			continue
		}
		if err := r.SelectTexture(slot, r.NewTexture()); err != nil {
			return err
		}
		img, err := loadTexture(texture)
		if err != nil {
			return err
		}
		if err := combiner.UploadImage(r, img); err != nil {
			return err
		}
		if err := r.SetSamplerParameters(slot, true, 0, 0); err != nil {
			return err
		}
	}

	vertices := quad(p)
	err = combiner.Run(wm, r, func(r *combiner.Renderer) error {
		w, h := r.Size()
		r.SetViewport(0, 0, w, h)
		r.SetScissor(0, 0, w, h)
		r.SetUseAlpha(p.Alpha)
		r.LoadShader(p)
		return r.DrawTriangles(vertices, len(vertices), 2)
	})
	if err != nil {
		return err
	}

	s := r.Stats()
	fmt.Printf("\nrendered %d frames on %s: %d programs, %d draws, noise frame %d\n",
		s.Frames, r.Device().Name(), s.Programs, s.State.Draws, s.NoiseFrame)
	return nil
}

// loadTexture decodes path, or returns a checkerboard when path is empty.
func loadTexture(path string) (image.Image, error) {
	if path == "" {
		img := image.NewGray(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				if (x+y)%2 == 0 {
					img.Pix[y*img.Stride+x] = 255
				}
			}
		}
		return img, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}

// quad builds two triangles covering clip space in p's vertex layout.
func quad(p *combiner.Program) []float32 {
	corners := [6][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, -1}, {1, 1}, {-1, 1}}
	out := make([]float32, 0, len(corners)*p.NumFloats)
	for _, xy := range corners {
		v := make([]float32, p.NumFloats)
		for _, a := range p.Layout.Attributes {
			switch a.Kind {
			case shader.AttrPosition:
				copy(v[a.Offset:], []float32{xy[0], xy[1], 0, 1})
			case shader.AttrTexCoord:
				copy(v[a.Offset:], []float32{(xy[0] + 1) * 16, (1 - xy[1]) * 16})
			case shader.AttrFog:
				copy(v[a.Offset:], []float32{0.5, 0.5, 0.5, 0})
			case shader.AttrInput:
				for i := 0; i < a.Components; i++ {
					v[a.Offset+i] = 1
				}
			}
		}
		out = append(out, v...)
	}
	return out
}

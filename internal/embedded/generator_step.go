package embedded

import (
	"fmt"
	"io"

	"github.com/insilica/srvc-go/internal/generator"
)

// RunGeneratorFile implements the "generator-file" embedded step: reads
// the file or URL given as an argument through a generator.Source
// (already ordered per the law), and writes it to SR_OUTPUT.
func RunGeneratorFile(fileOrURL string) error {
	env, err := GetEnv()
	if err != nil {
		return err
	}
	if env.Output == "" {
		return fmt.Errorf("embedded: generator-file requires SR_OUTPUT")
	}
	cfg, err := GetConfig(env.ConfigPath)
	if err != nil {
		return err
	}

	labelEvents, err := generator.LabelEvents(cfg.CurrentLabels)
	if err != nil {
		return err
	}

	src, err := generator.Open(fileOrURL, labelEvents)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := OutputWriter(env.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	for {
		e, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := out.Write(e); err != nil {
			return err
		}
	}
	return out.Flush()
}

package embedded

import (
	"io"

	"github.com/insilica/srvc-go/internal/schema"
	"github.com/insilica/srvc-go/internal/sink"
)

// RunSink implements the implicit "sink" step every flow ends with:
// drains SR_INPUT into the content store selected by the config's db
// target.
func RunSink() error {
	env, err := GetEnv()
	if err != nil {
		return err
	}
	cfg, err := GetConfig(env.ConfigPath)
	if err != nil {
		return err
	}

	writer, err := sink.NewWriter(cfg, schema.NewService(nil, ""))
	if err != nil {
		return err
	}
	defer writer.Close()

	in, err := InputEvents(env.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	for {
		e, err := in.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := writer.Put(e); err != nil {
			return err
		}
	}
	return nil
}

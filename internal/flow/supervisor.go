// Package flow implements the supervisor that resolves a named flow
// into an ordered chain of steps, wires a relay.Server onto every
// interior edge, spawns each step as a child process (or re-execs
// itself for run-embedded/uses steps), and waits for the chain to
// finish or kills everything on the first failure.
package flow

import (
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/insilica/srvc-go/internal/config"
	"github.com/insilica/srvc-go/internal/relay"
	"github.com/insilica/srvc-go/internal/srerr"
)

// sinkStepName is the implicit step appended to every flow.
const sinkStepName = "sink"

type runningStep struct {
	step   config.Step
	cmd    *exec.Cmd
	server *relay.Server
	state  childState
}

// Run resolves flowName in cfg and runs it to completion.
func Run(cfg *config.Config, flowName string) error {
	flowSteps, ok := cfg.Flows[flowName]
	if !ok {
		return fmt.Errorf("flow: no flow named %q", flowName)
	}
	if len(flowSteps) == 0 {
		return fmt.Errorf("flow: no steps in flow %q", flowName)
	}

	dir, err := os.MkdirTemp("", "srvc-*")
	if err != nil {
		return fmt.Errorf("flow: creating temporary directory: %w", err)
	}
	defer os.RemoveAll(dir)

	return runInDir(cfg, flowSteps, dir)
}

func runInDir(cfg *config.Config, flowSteps config.Flow, dir string) error {
	exe, err := exePath()
	if err != nil {
		return err
	}

	steps := make([]config.Step, 0, len(cfg.Sources)+len(flowSteps)+1)
	steps = append(steps, cfg.Sources...)
	steps = append(steps, flowSteps...)
	steps = append(steps, config.Step{
		RunEmbedded: sinkStepName,
		Env:         []string{"SRVC_TOKEN"},
	})

	var running []*runningStep
	var inputAddr string

	for i, step := range steps {
		isLast := i == len(steps)-1

		var server *relay.Server
		if !isLast {
			server, err = relay.New()
			if err != nil {
				killAll(running)
				return err
			}
			go func(s *relay.Server) {
				_ = s.Run() // a relay error surfaces as its downstream step's non-zero exit
			}(server)
		}

		rs, err := spawnStep(cfg, dir, step, inputAddr, server, exe)
		if err != nil {
			killAll(running)
			return err
		}
		running = append(running, rs)

		if server != nil {
			inputAddr = server.OutputAddr()
		} else {
			inputAddr = ""
		}
	}

	return wait(running)
}

func spawnStep(cfg *config.Config, dir string, step config.Step, inputAddr string, server *relay.Server, exe string) (*runningStep, error) {
	stepCfg := cfg.ForStep(step)
	configPath, err := writeStepConfig(dir, stepCfg)
	if err != nil {
		return nil, err
	}

	program, args, err := resolveRunCommand(step, exe)
	if err != nil {
		return nil, err
	}

	outputAddr := ""
	if server != nil {
		outputAddr = server.InputAddr()
	}

	cmd := exec.Command(program, args...)
	cmd.Stderr = os.Stderr
	cmd.Env = append(removeEnv(os.Environ(), "SRVC_TOKEN"),
		"SR_CONFIG="+configPath,
		"SR_INPUT="+inputAddr,
		"SR_OUTPUT="+outputAddr,
	)
	if containsString(step.Env, "SRVC_TOKEN") {
		if token, ok := os.LookupEnv("SRVC_TOKEN"); ok {
			cmd.Env = append(cmd.Env, "SRVC_TOKEN="+token)
		}
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("flow: starting step: %w", err)
	}

	return &runningStep{step: step, cmd: cmd, server: server, state: childSpawned}, nil
}

type waitResult struct {
	index    int
	exitCode int
	err      error
}

// wait blocks until every child has exited. Each child is waited on by
// its own goroutine (idiomatic for os/exec, which has no non-blocking
// Wait); the main loop polls the results channel on the doubling
// backoff schedule spec.md mandates, so small flows return quickly and
// long-running ones don't spin.
func wait(running []*runningStep) error {
	results := make(chan waitResult, len(running))
	for i, rs := range running {
		go func(i int, rs *runningStep) {
			err := rs.cmd.Wait()
			code := 0
			if err != nil {
				if exitErr, ok := err.(*exec.ExitError); ok {
					code = exitErr.ExitCode()
				} else {
					code = -1
				}
			}
			results <- waitResult{index: i, exitCode: code, err: err}
		}(i, rs)
	}

	b := newBackoff()
	remaining := len(running)
	var failure *waitResult

	for remaining > 0 && failure == nil {
		select {
		case r := <-results:
			remaining--
			if r.exitCode != 0 {
				running[r.index].state = childFailed
				rc := r
				failure = &rc
			} else {
				running[r.index].state = childExited
			}
		default:
			time.Sleep(b.next())
		}
	}

	if failure != nil {
		killAll(running)
		// Drain remaining results so their goroutines don't leak.
		for remaining > 0 {
			<-results
			remaining--
		}
		return &srerr.StepFailed{StepIndex: failure.index, ExitCode: failure.exitCode}
	}
	return nil
}

func killAll(running []*runningStep) {
	for _, rs := range running {
		if rs.cmd.Process == nil {
			continue
		}
		if rs.state == childExited || rs.state == childFailed {
			continue
		}
		_ = rs.cmd.Process.Kill()
	}
}

func removeEnv(env []string, key string) []string {
	prefix := key + "="
	out := env[:0:0]
	for _, e := range env {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			continue
		}
		out = append(out, e)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// CommandHook runs an external program for each notification. The
// notification is passed through HULL_* environment variables.
type CommandHook struct {
	Argv []string
}

// Handle runs the command and waits for it to exit.
func (c CommandHook) Handle(ctx context.Context, n Notification) error {
	if len(c.Argv) == 0 {
		return errors.New("command hook: empty argv")
	}
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Env = append(os.Environ(), Env(n)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("command hook %s: %w: %s", c.Argv[0], err, out)
	}
	return nil
}

// Env renders n as KEY=value pairs.
func Env(n Notification) []string {
	env := []string{
		"HULL_TOPIC=" + string(n.Topic),
		"HULL_AT=" + n.At.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
	}
	if n.Entity != "" {
		env = append(env, "HULL_ENTITY="+n.Entity)
	}
	if n.EntityID != "" {
		env = append(env, "HULL_ENTITY_ID="+n.EntityID)
	}
	env = append(env, "HULL_FROM_GROUP="+groupString(n.From), "HULL_TO_GROUP="+groupString(n.To))
	return env
}

func groupString(g *int64) string {
	if g == nil {
		return ""
	}
	return strconv.FormatInt(*g, 10)
}

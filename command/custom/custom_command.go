// Package custom runs a user-supplied ffmpeg argument template.
package custom

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"

	"montage/command"
)

// Template placeholders.
const (
	PlaceholderInput  = "{input}"
	PlaceholderOutput = "{output}"
)

// CustomCommand substitutes file paths into a template of ffmpeg arguments.
//
// The template is split into words with shell quoting rules first and the
// placeholders are replaced inside each word afterwards, so paths containing
// spaces or quotes stay single arguments. Nothing else is added: the plan
// is verbatim.
type CustomCommand struct {
	template   string
	inputPath  string
	outputPath string
}

// NewCustomCommand creates a command from a template.
func NewCustomCommand(template, inputPath, outputPath string) *CustomCommand {
	return &CustomCommand{
		template:   template,
		inputPath:  inputPath,
		outputPath: outputPath,
	}
}

// BuildArgs parses the template and substitutes the placeholders.
func (c *CustomCommand) BuildArgs() ([]string, error) {
	if strings.TrimSpace(c.template) == "" {
		return nil, fmt.Errorf("template cannot be empty")
	}

	words, err := shellwords.Parse(c.template)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("template has no arguments")
	}

	replacer := strings.NewReplacer(
		PlaceholderInput, c.inputPath,
		PlaceholderOutput, c.outputPath,
	)
	args := make([]string, len(words))
	for i, w := range words {
		args[i] = replacer.Replace(w)
	}
	return args, nil
}

// Plan compiles the template into a single verbatim invocation.
func (c *CustomCommand) Plan() (*command.Plan, error) {
	args, err := c.BuildArgs()
	if err != nil {
		return nil, err
	}
	return &command.Plan{
		Type:        command.TaskTypeCustom,
		InputPath:   c.inputPath,
		OutputPath:  c.outputPath,
		Verbatim:    true,
		Invocations: []command.Invocation{{Name: command.InvocationCustom, Args: args}},
	}, nil
}

// DryRun returns the command that would be executed without running it
func (c *CustomCommand) DryRun() (string, error) {
	plan, err := c.Plan()
	if err != nil {
		return "", err
	}
	return plan.String(), nil
}

// UsesOutput reports whether the template references the output path.
func (c *CustomCommand) UsesOutput() bool {
	return strings.Contains(c.template, PlaceholderOutput)
}

// GetTaskType returns the task type
func (c *CustomCommand) GetTaskType() command.TaskType {
	return command.TaskTypeCustom
}

// GetInputPath returns the input path
func (c *CustomCommand) GetInputPath() string {
	return c.inputPath
}

// GetOutputPath returns the output path
func (c *CustomCommand) GetOutputPath() string {
	return c.outputPath
}

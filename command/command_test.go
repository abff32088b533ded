package command

import (
	"os"
	"strings"
	"testing"

	"github.com/mattn/go-shellwords"
)

func TestTaskTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		taskType TaskType
		expected string
	}{
		{"Render", TaskTypeRender, "render"},
		{"Clip", TaskTypeClip, "clip"},
		{"Custom", TaskTypeCustom, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.taskType) != tt.expected {
				t.Errorf("%s = %s; want %s", tt.name, string(tt.taskType), tt.expected)
			}
		})
	}
}

func TestQuote(t *testing.T) {
	tests := []struct {
		name     string
		arg      string
		expected string
	}{
		{"plain", "-c:v", "-c:v"},
		{"path", "/tmp/out.mp4", "/tmp/out.mp4"},
		{"empty", "", "''"},
		{"space", "my clip.mp4", "my' clip.mp4'"},
		{"brackets", "[v0][v1]xfade", `\[v0]\[v1]xfade`},
		{"semicolon", "a;b", `a\;b`},
		{"single quote", "it's.mp4", `it\'s.mp4`},
		{"glob", "*.mp4", `\*.mp4`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Quote(tt.arg); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestInvocationString(t *testing.T) {
	inv := Invocation{Name: InvocationRender, Args: []string{"-y", "-i", "a b.mp4", "out.mp4"}}

	expected := "ffmpeg -y -i a' b.mp4' out.mp4"
	if got := inv.String(); got != expected {
		t.Errorf("Expected %q, got %q", expected, got)
	}
}

func TestInvocationString_ParsesBack(t *testing.T) {
	args := []string{"-i", "it's here.mp4", "-filter_complex", "[0:v]scale=1280:720[v0];[v0]null[out]", "-map", "[out]", "out.mp4"}
	inv := Invocation{Name: InvocationRender, Args: args}

	words, err := shellwords.Parse(inv.String())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(words) != len(args)+1 || words[0] != "ffmpeg" {
		t.Fatalf("Expected ffmpeg plus %d args, got %q", len(args), words)
	}
	for i, a := range args {
		if words[i+1] != a {
			t.Errorf("Arg %d: expected %q, got %q", i, a, words[i+1])
		}
	}
}

func TestSinglePass(t *testing.T) {
	common := []string{"-y", "-i", "in.mp4"}
	invs := SinglePass(InvocationClip, common, "out.mp4")

	if len(invs) != 1 {
		t.Fatalf("Expected 1 invocation, got %d", len(invs))
	}
	if invs[0].Name != InvocationClip {
		t.Errorf("Expected name %s, got %s", InvocationClip, invs[0].Name)
	}
	if got := strings.Join(invs[0].Args, " "); got != "-y -i in.mp4 out.mp4" {
		t.Errorf("Unexpected args: %s", got)
	}
	if len(common) != 3 {
		t.Error("SinglePass must not modify the common arguments")
	}
}

func TestTwoPass(t *testing.T) {
	common := []string{"-y", "-i", "in.mp4", "-b:v", "2M"}
	invs := TwoPass(common, "out.mp4", "out-passlog")

	if len(invs) != 2 {
		t.Fatalf("Expected 2 invocations, got %d", len(invs))
	}

	pass1 := strings.Join(invs[0].Args, " ")
	expected1 := "-y -i in.mp4 -b:v 2M -pass 1 -passlogfile out-passlog -f null " + os.DevNull
	if invs[0].Name != InvocationPass1 || pass1 != expected1 {
		t.Errorf("Unexpected pass 1 %s: %s", invs[0].Name, pass1)
	}

	pass2 := strings.Join(invs[1].Args, " ")
	expected2 := "-y -i in.mp4 -b:v 2M -pass 2 -passlogfile out-passlog out.mp4"
	if invs[1].Name != InvocationPass2 || pass2 != expected2 {
		t.Errorf("Unexpected pass 2 %s: %s", invs[1].Name, pass2)
	}
}

func TestPassLogFile(t *testing.T) {
	tests := []struct {
		output   string
		expected string
	}{
		{"/data/out.mp4", "/data/out-passlog"},
		{"clip.final.mkv", "clip.final-passlog"},
		{"noext", "noext-passlog"},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			if got := PassLogFile(tt.output); got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{"valid", Plan{Invocations: []Invocation{{Name: "render", Args: []string{"-y"}}}}, false},
		{"no invocations", Plan{}, true},
		{"unnamed", Plan{Invocations: []Invocation{{Args: []string{"-y"}}}}, true},
		{"no args", Plan{Invocations: []Invocation{{Name: "render"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPlanString(t *testing.T) {
	plan := &Plan{Invocations: TwoPass([]string{"-y"}, "out.mp4", "log")}

	if !plan.IsMultiPass() {
		t.Error("Expected two-pass plan to be multi-pass")
	}
	lines := strings.Split(plan.String(), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ffmpeg -y -pass 1") {
		t.Errorf("Unexpected first line: %s", lines[0])
	}
	if !strings.HasSuffix(lines[1], "out.mp4") {
		t.Errorf("Unexpected second line: %s", lines[1])
	}
}

package dbfile

import (
	"strings"
	"testing"

	"moodb/types"
)

// Regression case grounded on the multi-activation suspended-task bug:
// a suspended task whose VM has more than one stack frame must consume
// exactly Top+1 activations (each terminated by its own "." code block)
// before the next top-level section's header line is visible.
func TestReadSuspendedTasksMultipleActivations(t *testing.T) {
	taskData := `2 suspended tasks
1000 1001 0
0
10
0
0 -1 0 50
language version 17
return 1;
.
1 variables
NUM
0
0
0 rt_stack slots in use
0
-111
1
1
1
1
1
1 -7 -8 1 -9 1 1 -10 1
No
More
Parse
Infos
test_verb
test_verb
6
0 0 0
1000 1002 0
0
10
0
1 0 0 50
language version 17
return 2;
.
1 variables
NUM
0
0
0 rt_stack slots in use
0
-111
1
2
1
2
1
2 -7 -8 2 -9 2 2 -10 1
No
More
Parse
Infos
outer_verb
outer_verb
6
0 0 0
language version 17
return 3;
.
1 variables
NUM
0
0
0 rt_stack slots in use
0
-111
1
2
1
2
1
2 -7 -8 2 -9 2 2 -10 1
No
More
Parse
Infos
inner_verb
inner_verb
6
0 0 0
`
	taskData += "1 interrupted tasks\n"

	r := newReader(strings.NewReader(taskData), "test")
	lc := &loadCtx{r: r, version: FormatVersion17, db: &Database{Objects: make(map[types.ObjID]*Object)}}

	tasks, err := lc.readSuspendedTasks()
	if err != nil {
		t.Fatalf("readSuspendedTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 suspended tasks, got %d", len(tasks))
	}
	if len(tasks[0].VM.Stack) != int(tasks[0].VM.Top)+1 {
		t.Errorf("task 0: len(stack)=%d, want top+1=%d", len(tasks[0].VM.Stack), tasks[0].VM.Top+1)
	}
	if len(tasks[1].VM.Stack) != int(tasks[1].VM.Top)+1 {
		t.Errorf("task 1: len(stack)=%d, want top+1=%d", len(tasks[1].VM.Stack), tasks[1].VM.Top+1)
	}
	if len(tasks[1].VM.Stack) != 2 {
		t.Fatalf("task 1 should have 2 activations (outer+inner), got %d", len(tasks[1].VM.Stack))
	}
	if tasks[1].VM.Stack[0].PI.Verb != "outer_verb" || tasks[1].VM.Stack[1].PI.Verb != "inner_verb" {
		t.Errorf("activation order wrong: got %q then %q",
			tasks[1].VM.Stack[0].PI.Verb, tasks[1].VM.Stack[1].PI.Verb)
	}

	line, err := r.readLine()
	if err != nil {
		t.Fatalf("reading next section header: %v", err)
	}
	if line != "1 interrupted tasks" {
		t.Errorf("next section header = %q, want %q", line, "1 interrupted tasks")
	}
}

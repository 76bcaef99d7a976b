package commands

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/statscout/internal/adapters/mq/queue"
	"github.com/okian/statscout/internal/adapters/mq/worker"
	"github.com/okian/statscout/internal/app"
	"github.com/okian/statscout/internal/domain/query"
	"github.com/okian/statscout/internal/domain/render"
	"github.com/okian/statscout/pkg/logger"
)

const maxLineBytes = 1 << 20

// ErrBadLine is returned for a batch line that is not a JSON object.
var ErrBadLine = errors.New("bad batch line")

// errStopped is the cause for lines skipped after --fail-fast tripped.
var errStopped = errors.New("batch stopped after a failed line")

type batchOptions struct {
	*globalOptions
	file     string
	workers  int
	failFast bool
}

func newBatchCmd(global *globalOptions) *cobra.Command {
	opts := &batchOptions{globalOptions: global}

	cmd := &cobra.Command{
		Use:   "batch [--file lines.jsonl] [--workers N]",
		Short: "Submits one query per JSON line and prints the outputs in input order.",
		Long: "Each line is a JSON object of form fields, e.g.\n" +
			`  {"passing_yards_pg": "250", "k": 3}` + "\n" +
			"Blank lines are skipped. Lines run concurrently on --workers workers.\n" +
			"Every line gets an output, lines that never ran say why.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBatch(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "-", "JSON lines to read, - for stdin")
	cmd.Flags().IntVar(&opts.workers, "workers", worker.DefaultWorkerCount, "concurrent submissions")
	cmd.Flags().BoolVar(&opts.failFast, "fail-fast", false, "stop taking new lines after the first failure")
	return cmd
}

// handleProcessor runs each job through its own mounted handle.
type handleProcessor struct {
	submitter app.Submitter
	opts      []app.Option
}

func (p handleProcessor) Process(ctx context.Context, j queue.Job) worker.Result {
	mode, err := query.ParseMode(j.Fields.Get("mode"))
	if err != nil {
		return worker.Result{Output: render.Error(err), Err: err}
	}
	out := &app.Buffer{}
	opts := append(append([]app.Option(nil), p.opts...), app.WithMode(mode))
	err = app.Mount(p.submitter, j.Fields, out, opts...).Submit(ctx)
	return worker.Result{Output: out.Text(), Err: err}
}

func runBatch(cmd *cobra.Command, opts *batchOptions) error {
	ctx := cmd.Context()
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	cfg, client, log, err := setup(cmd, opts.globalOptions)
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(cmd, opts.file)
	if err != nil {
		return err
	}
	defer closeIn()

	jobs, err := readJobs(in)
	if err != nil {
		return err
	}

	var q queue.Queue = queue.NewInMemoryQueue(queue.WithCapacity(len(jobs)))
	for _, j := range jobs {
		if !q.Enqueue(ctx, j) {
			return fmt.Errorf("%w: line %d", queue.ErrRejected, j.Seq)
		}
	}
	_ = q.Close()

	tracker := app.NewTracker()
	proc := handleProcessor{
		submitter: client,
		opts: []app.Option{
			app.WithPolicy(cfg.Policy()),
			app.WithTracker(tracker),
			app.WithLogger(log),
		},
	}
	pool := worker.NewPool(opts.workers, q, proc, worker.WithLogger(log))
	log.Debug(ctx, "batch started", logger.Int("jobs", q.Len(ctx)), logger.Int("workers", pool.Size()))

	var stop func(worker.Result) bool
	if opts.failFast {
		stop = func(r worker.Result) bool { return r.Err != nil }
	}
	ran := pool.Collect(ctx, stop)
	results := completeResults(jobs, ran, ctx.Err())

	failed := 0
	for _, r := range results {
		fmt.Fprintf(stdout, "# line %d\n%s\n", r.Seq, r.Output)
		if r.Err != nil {
			failed++
		}
	}
	log.Info(ctx, "batch finished",
		logger.Int("jobs", len(results)),
		logger.Int("ran", len(ran)),
		logger.Int("failed", failed),
	)
	fmt.Fprintf(stderr, "%d submitted, %d failed\n", len(ran), failed)

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d lines", errSubmission, failed, len(results))
	}
	return nil
}

// completeResults returns one result per job in Seq order. Jobs that never
// ran fail with cause, or errStopped when cause is nil.
func completeResults(jobs []queue.Job, ran []worker.Result, cause error) []worker.Result {
	if len(ran) == len(jobs) {
		return ran
	}
	if cause == nil {
		cause = errStopped
	}
	bySeq := make(map[int]worker.Result, len(ran))
	for _, r := range ran {
		bySeq[r.Seq] = r
	}
	out := make([]worker.Result, 0, len(jobs))
	for _, j := range jobs {
		r, ok := bySeq[j.Seq]
		if !ok {
			err := fmt.Errorf("not submitted: %w", cause)
			r = worker.Result{Seq: j.Seq, Output: render.Error(err), Err: err}
		}
		out = append(out, r)
	}
	return out
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

// readJobs parses JSON lines. Seq is the 1-based line number.
func readJobs(r io.Reader) ([]queue.Job, error) {
	var jobs []queue.Job
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineBytes)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		fields, err := query.ValuesFromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrBadLine, line, err)
		}
		jobs = append(jobs, queue.Job{Seq: line, Fields: fields})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

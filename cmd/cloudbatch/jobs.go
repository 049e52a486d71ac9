package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/objectstore"
	"github.com/kbukum/cloudbatch/operation"
)

// job is one operation plus how to print its outcome.
type job struct {
	label    string
	op       *operation.Operation
	describe func(*operation.Operation) (string, error)
}

func jobOperations(jobs []job) []*operation.Operation {
	ops := make([]*operation.Operation, len(jobs))
	for i, j := range jobs {
		ops[i] = j.op
	}
	return ops
}

func done(op *operation.Operation) (string, error) {
	_, err := objectstore.Value[any](op)
	return "", err
}

const (
	outputText = "text"
	outputJSON = "json"
)

func checkOutput(format string) error {
	switch format {
	case outputText, outputJSON:
		return nil
	default:
		return errors.InvalidArgument("output", fmt.Sprintf("%q is not text or json", format))
	}
}

// jobResult is one line of JSON output.
type jobResult struct {
	Label  string `json:"label"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail,omitempty"`
	*errors.ErrorResponse
}

func errorResponse(err error) *errors.ErrorResponse {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
		appErr.Message = err.Error()
	}
	resp := appErr.ToResponse()
	return &resp
}

// report prints one line per job, as text or JSON, and fails if any job
// failed.
func report(w io.Writer, format string, jobs []job) error {
	enc := json.NewEncoder(w)
	failed := 0
	for _, j := range jobs {
		detail, err := j.describe(j.op)
		if err != nil {
			failed++
		}
		if format == outputJSON {
			res := jobResult{Label: j.label, OK: err == nil, Detail: detail}
			if err != nil {
				res.ErrorResponse = errorResponse(err)
			}
			if werr := enc.Encode(res); werr != nil {
				return werr
			}
			continue
		}
		switch {
		case err != nil:
			fmt.Fprintf(w, "FAIL %s: %v\n", j.label, err)
		case detail != "":
			fmt.Fprintf(w, "ok   %s %s\n", j.label, detail)
		default:
			fmt.Fprintf(w, "ok   %s\n", j.label)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d operations failed", failed, len(jobs))
	}
	return nil
}

// splitPath splits "container/object".
func splitPath(arg string) (container, object string, err error) {
	container, object, ok := strings.Cut(strings.TrimPrefix(arg, "/"), "/")
	if !ok || container == "" || object == "" {
		return "", "", errors.InvalidArgument("path", fmt.Sprintf("%q is not container/object", arg))
	}
	return container, object, nil
}

func newStatCommand(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "stat container/object...",
		Short: "Show object metadata",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, o, func(c *objectstore.Client) ([]job, error) {
				jobs := make([]job, 0, len(args))
				for _, arg := range args {
					container, name, err := splitPath(arg)
					if err != nil {
						return jobs, err
					}
					op, err := c.HeadObject(container, name)
					if err != nil {
						return jobs, err
					}
					jobs = append(jobs, job{label: "stat " + arg, op: op, describe: describeObject})
				}
				return jobs, nil
			})
		},
	}
}

func describeObject(op *operation.Operation) (string, error) {
	info, err := objectstore.Value[objectstore.ObjectInfo](op)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("size=%d type=%s etag=%s", info.Size, info.ContentType, info.ETag), nil
}

func newDeleteCommand(o *overrides) *cobra.Command {
	return &cobra.Command{
		Use:   "delete container/object...",
		Short: "Delete objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, o, func(c *objectstore.Client) ([]job, error) {
				jobs := make([]job, 0, len(args))
				for _, arg := range args {
					container, name, err := splitPath(arg)
					if err != nil {
						return jobs, err
					}
					op, err := c.DeleteObject(container, name)
					if err != nil {
						return jobs, err
					}
					jobs = append(jobs, job{label: "delete " + arg, op: op, describe: done})
				}
				return jobs, nil
			})
		},
	}
}

type transferFunc func(c *objectstore.Client, srcContainer, srcName, dstContainer, dstName string) (*operation.Operation, error)

func newCopyCommand(o *overrides, use, short string, transfer transferFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " src dst [src dst]...",
		Short: short,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return fmt.Errorf("%s takes src dst pairs, got %d arguments", use, len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, o, func(c *objectstore.Client) ([]job, error) {
				jobs := make([]job, 0, len(args)/2)
				for i := 0; i < len(args); i += 2 {
					sc, sn, err := splitPath(args[i])
					if err != nil {
						return jobs, err
					}
					dc, dn, err := splitPath(args[i+1])
					if err != nil {
						return jobs, err
					}
					op, err := transfer(c, sc, sn, dc, dn)
					if err != nil {
						return jobs, err
					}
					label := fmt.Sprintf("%s %s -> %s", use, args[i], args[i+1])
					jobs = append(jobs, job{label: label, op: op, describe: done})
				}
				return jobs, nil
			})
		},
	}
}

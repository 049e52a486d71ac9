// Package operation models one logical action made of strictly sequential
// network steps.
//
// Each step pairs a Conn (which owns the step's connection and its single
// Handle) with an Interpreter that turns the step's completion status into
// a value. Steps run in index order; the first failing step makes the
// Operation failed and every later step is skipped. A FinalCallback turns
// the last interpreted result into the value returned by FinalResult.
//
// The lifecycle is NEW → QUEUED → STARTED → FINISHED and is driven by the
// batch executor:
//
//	op := operation.New("move photos/cat.jpg")
//	_ = op.AppendStep(copyConn, copyConn.Handle(), interpretCopy)
//	_ = op.SetFinalCallback(done, nil)
//	ops, _ := batch.Run(ctx, op)
//	v, err := ops[0].FinalResult()
package operation

// Package batch drives many Operations through synchronized stages.
//
// Stage s registers step s of every Operation that has one and has not
// failed, drains the multiplexer until all of those handles complete, and
// then interprets each result. No Operation starts step s+1 before every
// Operation has finished step s. After the last stage every Operation is
// FINISHED, failed or not, and its value is read with FinalResult.
//
//	ops, err := batch.Run(ctx, headA, headB, move)
//	for _, op := range ops {
//	    v, err := op.FinalResult()
//	}
package batch

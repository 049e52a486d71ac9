// Package objectstore is a Swift-style object-storage and CDN client built
// on batches of operations.
//
// Every method returns an *operation.Operation that has not run yet. Group
// any number of them into one batch with Client.Run; their requests go out
// concurrently, one stage at a time. Read each typed result afterwards with
// Value:
//
//	head, _ := store.HeadObject("photos", "cat.jpg")
//	move, _ := store.MoveObject("inbox", "a.txt", "archive", "a.txt")
//	if _, err := store.Run(ctx, head, move); err != nil {
//		return err
//	}
//	info, err := objectstore.Value[objectstore.ObjectInfo](head)
//
// Bucket wraps a single container behind simple blocking calls for code
// that does not need batching.
package objectstore

// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package castcopy copies strided N-dimensional arrays between memory blocks,
// converting the element type on the way, as asynchronous queue tasks.
//
// # Overview
//
// A copy is described by a source and a destination View of equal shape.
// Views carry their own strides (possibly negative, or zero on the source for
// broadcasting), an element offset, and one of fourteen element kinds.
// SubmitCopyCast validates the pair, picks the most specialized kernel for the
// layout, and returns an Event that completes once every destination element
// holds the converted source element.
//
// # Basic Usage
//
//	q := castcopy.NewQueue(castcopy.QueueConfig{Workers: 4})
//	defer q.Close()
//
//	src, _ := castcopy.FromSlice([]float32{1.5, 2.5, 3.5, 4.5}, castcopy.Shape{2, 2})
//	rev, _ := src.Strided(-1, -1)
//	dst := castcopy.MustEmpty(castcopy.Shape{2, 2}, castcopy.Int32)
//
//	ev, err := castcopy.SubmitCopyCast(rev, dst, q, nil)
//	if err != nil {
//	    return err
//	}
//	next, _ := castcopy.SubmitCopyCast(dst, other, q, []*castcopy.Event{ev})
//	_ = next.Wait()
//
// # Conversions
//
// Casts never fail. Integer narrowing wraps, float to integer truncates
// toward zero, complex to real keeps the real part, and bool reads any
// non-zero value as true and writes 0 or 1.
//
// # Overlap
//
// Source and destination may share memory. Unless they map every element to
// itself, the copy is staged through a scratch buffer so the result matches a
// copy through an independent intermediate.
//
// # Errors
//
// Rejected calls return an error matching exactly one of ErrShapeMismatch,
// ErrInvalidBroadcast, ErrTypeDispatch or ErrDeviceSubmission and have no
// side effects.
package castcopy

package objectstore

import (
	"bytes"
	"context"
	"io"

	"github.com/kbukum/cloudbatch/errors"
	"github.com/kbukum/cloudbatch/operation"
)

// Storage is the blocking, path-oriented view of one container.
type Storage interface {
	// Upload writes data from reader to the given path.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download returns a reader for the object at the given path.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at the given path.
	// Returns nil if the object does not exist.
	Delete(ctx context.Context, path string) error

	// Exists checks whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)

	// URL returns the storage URL of the object at the given path.
	URL(ctx context.Context, path string) (string, error)

	// List returns info for all objects whose path starts with prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

var _ Storage = (*Bucket)(nil)

// Bucket implements Storage for one container. Each call runs its own
// batch; List heads every listed object in a single batch.
type Bucket struct {
	client    *Client
	container string
}

// Bucket returns the Storage view of container.
func (c *Client) Bucket(container string) (*Bucket, error) {
	if err := checkContainer(container); err != nil {
		return nil, err
	}
	return &Bucket{client: c, container: container}, nil
}

// Container returns the container name.
func (b *Bucket) Container() string { return b.container }

func (b *Bucket) run(ctx context.Context, op *operation.Operation) error {
	_, err := b.client.Run(ctx, op)
	return err
}

// Upload implements Storage.
func (b *Bucket) Upload(ctx context.Context, path string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return errors.InvalidArgument("reader", err.Error())
	}
	op, err := b.client.PutObject(b.container, path, data, PutOptions{})
	if err == nil {
		err = b.run(ctx, op)
	}
	if err != nil {
		return err
	}
	_, err = Value[ObjectInfo](op)
	return err
}

// Download implements Storage.
func (b *Bucket) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	op, err := b.client.GetObject(b.container, path)
	if err == nil {
		err = b.run(ctx, op)
	}
	if err != nil {
		return nil, err
	}
	obj, err := Value[Object](op)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.Data)), nil
}

// Delete implements Storage.
func (b *Bucket) Delete(ctx context.Context, path string) error {
	op, err := b.client.DeleteObject(b.container, path)
	if err == nil {
		err = b.run(ctx, op)
	}
	if err != nil {
		return err
	}
	if _, err := Value[any](op); err != nil && !errors.HasCode(err, errors.ErrCodeNotFound) {
		return err
	}
	return nil
}

// Exists implements Storage.
func (b *Bucket) Exists(ctx context.Context, path string) (bool, error) {
	op, err := b.client.HeadObject(b.container, path)
	if err == nil {
		err = b.run(ctx, op)
	}
	if err != nil {
		return false, err
	}
	_, err = Value[ObjectInfo](op)
	switch {
	case err == nil:
		return true, nil
	case errors.HasCode(err, errors.ErrCodeNotFound):
		return false, nil
	default:
		return false, err
	}
}

// URL implements Storage.
func (b *Bucket) URL(_ context.Context, path string) (string, error) {
	if err := checkObject(b.container, path); err != nil {
		return "", err
	}
	return b.client.tc.URL(objectTarget(b.container, path)), nil
}

// List implements Storage. Objects deleted between the listing and the
// heads are left out.
func (b *Bucket) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	op, err := b.client.ListObjects(b.container, ListOptions{Prefix: prefix})
	if err == nil {
		err = b.run(ctx, op)
	}
	if err != nil {
		return nil, err
	}
	names, err := Value[[]string](op)
	if err != nil || len(names) == 0 {
		return nil, err
	}

	heads := make([]*operation.Operation, 0, len(names))
	for _, name := range names {
		h, err := b.client.HeadObject(b.container, name)
		if err != nil {
			Discard(heads...)
			return nil, err
		}
		heads = append(heads, h)
	}
	if _, err := b.client.Run(ctx, heads...); err != nil {
		Discard(heads...)
		return nil, err
	}

	infos := make([]ObjectInfo, 0, len(heads))
	for _, h := range heads {
		info, err := Value[ObjectInfo](h)
		if errors.HasCode(err, errors.ErrCodeNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

package blob

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// Azure stores blobs in an Azure Storage account.
type Azure struct {
	client *azblob.Client
}

// NewAzure connects with an account connection string.
func NewAzure(connectionString string) (*Azure, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure blob client: %w", err)
	}
	return &Azure{client: client}, nil
}

func (a *Azure) Driver() string { return "azure" }

// URL is the account's service endpoint.
func (a *Azure) URL() string { return a.client.URL() }

func (a *Azure) ListContainers(ctx context.Context) ([]string, error) {
	var names []string
	pager := a.client.NewListContainersPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list containers: %w", err)
		}
		for _, item := range page.ContainerItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

func (a *Azure) List(ctx context.Context, container string) ([]Object, error) {
	if !ValidContainer(container) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidContainer, container)
	}
	var objects []Object
	pager := a.client.NewListBlobsFlatPager(container, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			if bloberror.HasCode(err, bloberror.ContainerNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrNotFound, container)
			}
			return nil, fmt.Errorf("failed to list blobs in %s: %w", container, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			obj := Object{Container: container, Name: *item.Name, URL: a.blobURL(container, *item.Name)}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					obj.Size = *p.ContentLength
				}
				if p.ContentType != nil {
					obj.ContentType = *p.ContentType
				}
				if p.LastModified != nil {
					obj.LastModified = *p.LastModified
				}
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func (a *Azure) Put(ctx context.Context, container, name string, r io.Reader, contentType string) (Object, error) {
	name, err := checkTarget(container, name)
	if err != nil {
		return Object{}, err
	}
	opts := &azblob.UploadStreamOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &contentType}
	}
	counter := &countingReader{r: r}
	if _, err := a.client.UploadStream(ctx, container, name, counter, opts); err != nil {
		return Object{}, fmt.Errorf("failed to upload %s/%s: %w", container, name, err)
	}
	return Object{
		Container:   container,
		Name:        name,
		URL:         a.blobURL(container, name),
		Size:        counter.n,
		ContentType: contentType,
	}, nil
}

func (a *Azure) Delete(ctx context.Context, container, name string) error {
	name, err := checkTarget(container, name)
	if err != nil {
		return err
	}
	if _, err := a.client.DeleteBlob(ctx, container, name, nil); err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", container, name, err)
	}
	return nil
}

func (a *Azure) blobURL(container, name string) string {
	return joinURL(a.client.URL(), container, name)
}

func joinURL(base, container, name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + container + "/" + strings.Join(segments, "/")
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

package drive

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-ingest/internal/connectors/google"
	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
)

// listQuery selects one files.list page.
type listQuery struct {
	// DriveID restricts the listing to one shared drive; empty lists the user corpus.
	DriveID   string
	Query     string
	PageToken string
	PageSize  int64
}

// changeQuery selects one changes.list page.
type changeQuery struct {
	// DriveID reads one shared drive's changes; empty reads the user's.
	DriveID string
	// AllDrives includes shared drive items in the user's changes.
	AllDrives bool
	PageToken string
	PageSize  int64
}

// apiClient is the narrow slice of the Drive API the adapter uses.
type apiClient interface {
	AboutEmail(ctx context.Context) (string, error)
	SharedDriveIDs(ctx context.Context) ([]string, error)
	ListFiles(ctx context.Context, q listQuery) (*drive.FileList, error)
	StartPageToken(ctx context.Context, driveID string) (string, error)
	ListChanges(ctx context.Context, q changeQuery) (*drive.ChangeList, error)
	Download(ctx context.Context, fileID string) (*http.Response, error)
	Export(ctx context.Context, fileID, mimeType string) (*http.Response, error)
	Permissions(ctx context.Context, fileID string) ([]*drive.Permission, error)
}

// serviceClient calls the Drive API through a rate limiter.
// Every error it returns is mapped onto the domain sentinels.
type serviceClient struct {
	svc     *drive.Service
	limiter *google.RateLimiter
}

func newServiceClient(svc *drive.Service, limiter *google.RateLimiter) *serviceClient {
	return &serviceClient{svc: svc, limiter: limiter}
}

func (c *serviceClient) call(ctx context.Context, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return google.WrapError(c.limiter.Observe(fn()))
}

func (c *serviceClient) AboutEmail(ctx context.Context) (string, error) {
	var about *drive.About
	err := c.call(ctx, func() (err error) {
		about, err = c.svc.About.Get().Fields("user(emailAddress)").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", err
	}
	if about.User == nil {
		return "", nil
	}
	return about.User.EmailAddress, nil
}

func (c *serviceClient) SharedDriveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	pageToken := ""
	for {
		var list *drive.DriveList
		err := c.call(ctx, func() (err error) {
			call := c.svc.Drives.List().PageSize(100).Fields("nextPageToken, drives(id)").Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			list, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}
		for _, d := range list.Drives {
			ids = append(ids, d.Id)
		}
		if list.NextPageToken == "" {
			return ids, nil
		}
		pageToken = list.NextPageToken
	}
}

func (c *serviceClient) ListFiles(ctx context.Context, q listQuery) (*drive.FileList, error) {
	var list *drive.FileList
	err := c.call(ctx, func() (err error) {
		call := c.svc.Files.List().
			Q(q.Query).
			OrderBy("modifiedTime").
			PageSize(q.PageSize).
			Fields(googleapi.Field(fileFields)).
			SupportsAllDrives(true).
			Context(ctx)
		if q.DriveID != "" {
			call = call.Corpora("drive").DriveId(q.DriveID).IncludeItemsFromAllDrives(true)
		} else {
			call = call.Corpora("user")
		}
		if q.PageToken != "" {
			call = call.PageToken(q.PageToken)
		}
		list, err = call.Do()
		return err
	})
	return list, err
}

func (c *serviceClient) StartPageToken(ctx context.Context, driveID string) (string, error) {
	var tok *drive.StartPageToken
	err := c.call(ctx, func() (err error) {
		call := c.svc.Changes.GetStartPageToken().SupportsAllDrives(true).Context(ctx)
		if driveID != "" {
			call = call.DriveId(driveID)
		}
		tok, err = call.Do()
		return err
	})
	if err != nil {
		return "", err
	}
	return tok.StartPageToken, nil
}

func (c *serviceClient) ListChanges(ctx context.Context, q changeQuery) (*drive.ChangeList, error) {
	var list *drive.ChangeList
	err := c.call(ctx, func() (err error) {
		call := c.svc.Changes.List(q.PageToken).
			PageSize(q.PageSize).
			Fields(googleapi.Field(changeFields)).
			IncludeRemoved(true).
			SupportsAllDrives(true).
			Context(ctx)
		if q.DriveID != "" {
			call = call.DriveId(q.DriveID).IncludeItemsFromAllDrives(true)
		} else {
			call = call.IncludeItemsFromAllDrives(q.AllDrives)
		}
		list, err = call.Do()
		return err
	})
	if google.IsSyncTokenExpired(err) {
		return nil, fmt.Errorf("%w: change token rejected: %w", domain.ErrCursorInvalid, err)
	}
	return list, err
}

func (c *serviceClient) Download(ctx context.Context, fileID string) (*http.Response, error) {
	var resp *http.Response
	err := c.call(ctx, func() (err error) {
		resp, err = c.svc.Files.Get(fileID).SupportsAllDrives(true).Context(ctx).Download()
		return err
	})
	return resp, err
}

func (c *serviceClient) Export(ctx context.Context, fileID, mimeType string) (*http.Response, error) {
	var resp *http.Response
	err := c.call(ctx, func() (err error) {
		resp, err = c.svc.Files.Export(fileID, mimeType).Context(ctx).Download()
		return err
	})
	return resp, err
}

func (c *serviceClient) Permissions(ctx context.Context, fileID string) ([]*drive.Permission, error) {
	var perms []*drive.Permission
	pageToken := ""
	for {
		var list *drive.PermissionList
		err := c.call(ctx, func() (err error) {
			call := c.svc.Permissions.List(fileID).
				SupportsAllDrives(true).
				Fields("nextPageToken, permissions(type, emailAddress, domain, role)").
				Context(ctx)
			if pageToken != "" {
				call = call.PageToken(pageToken)
			}
			list, err = call.Do()
			return err
		})
		if err != nil {
			return nil, err
		}
		perms = append(perms, list.Permissions...)
		if list.NextPageToken == "" {
			return perms, nil
		}
		pageToken = list.NextPageToken
	}
}

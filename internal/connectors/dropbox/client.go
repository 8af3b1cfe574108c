package dropbox

import (
	"context"
	"io"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/files"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/sharing"
	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/users"
	"golang.org/x/time/rate"
)

// Members is the flattened membership of a shared file.
type Members struct {
	Emails []string
	Groups []string
}

// apiClient is the narrow slice of the Dropbox API the adapter uses.
type apiClient interface {
	CurrentAccountEmail(ctx context.Context) (string, error)
	ListFolder(ctx context.Context, path string, limit uint32) (*files.ListFolderResult, error)
	ListFolderContinue(ctx context.Context, cursor string) (*files.ListFolderResult, error)
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	Export(ctx context.Context, path, format string) (io.ReadCloser, error)
	FileMembers(ctx context.Context, path string) (*Members, error)
	HasPublicLink(ctx context.Context, path string) (bool, error)
}

// sdkClient calls the Dropbox SDK through a rate limiter.
// The SDK has no per-call context, so cancellation is checked before each call.
type sdkClient struct {
	files   files.Client
	sharing sharing.Client
	users   users.Client
	limiter *rate.Limiter
}

func newSDKClient(token string) *sdkClient {
	config := dropbox.Config{Token: token, LogLevel: dropbox.LogOff}
	return &sdkClient{
		files:   files.New(config),
		sharing: sharing.New(config),
		users:   users.New(config),
		// Dropbox does not publish per-user limits; stay well under typical quotas.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

func (c *sdkClient) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.limiter.Wait(ctx)
}

func (c *sdkClient) CurrentAccountEmail(ctx context.Context) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	account, err := c.users.GetCurrentAccount()
	if err != nil {
		return "", WrapError(err)
	}
	return account.Email, nil
}

func (c *sdkClient) ListFolder(ctx context.Context, path string, limit uint32) (*files.ListFolderResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	arg := files.NewListFolderArg(path)
	arg.Recursive = true
	arg.IncludeDeleted = true
	arg.IncludeNonDownloadableFiles = true
	arg.Limit = limit
	res, err := c.files.ListFolder(arg)
	return res, WrapError(err)
}

func (c *sdkClient) ListFolderContinue(ctx context.Context, cursor string) (*files.ListFolderResult, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.files.ListFolderContinue(files.NewListFolderContinueArg(cursor))
	return res, WrapError(err)
}

func (c *sdkClient) Download(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	_, body, err := c.files.Download(files.NewDownloadArg(path))
	if err != nil {
		return nil, WrapError(err)
	}
	return body, nil
}

func (c *sdkClient) Export(ctx context.Context, path, format string) (io.ReadCloser, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	arg := files.NewExportArg(path)
	arg.ExportFormat = format
	_, body, err := c.files.Export(arg)
	if err != nil {
		return nil, WrapError(err)
	}
	return body, nil
}

func (c *sdkClient) FileMembers(ctx context.Context, path string) (*Members, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	res, err := c.sharing.ListFileMembers(sharing.NewListFileMembersArg(path))
	if err != nil {
		return nil, WrapError(err)
	}

	members := &Members{}
	for {
		for _, u := range res.Users {
			if u.User != nil && u.User.Email != "" {
				members.Emails = append(members.Emails, u.User.Email)
			}
		}
		for _, g := range res.Groups {
			if g.Group != nil {
				members.Groups = append(members.Groups, g.Group.GroupId)
			}
		}
		if res.Cursor == "" {
			return members, nil
		}
		if err := c.wait(ctx); err != nil {
			return nil, err
		}
		res, err = c.sharing.ListFileMembersContinue(sharing.NewListFileMembersContinueArg(res.Cursor))
		if err != nil {
			return nil, WrapError(err)
		}
	}
}

func (c *sdkClient) HasPublicLink(ctx context.Context, path string) (bool, error) {
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	arg := sharing.NewListSharedLinksArg()
	arg.Path = path
	arg.DirectOnly = true
	res, err := c.sharing.ListSharedLinks(arg)
	if err != nil {
		return false, WrapError(err)
	}
	for _, link := range res.Links {
		if linkIsPublic(link) {
			return true, nil
		}
	}
	return false, nil
}

func linkIsPublic(link sharing.IsSharedLinkMetadata) bool {
	var perms *sharing.LinkPermissions
	switch l := link.(type) {
	case *sharing.FileLinkMetadata:
		perms = l.LinkPermissions
	case *sharing.FolderLinkMetadata:
		perms = l.LinkPermissions
	}
	return perms != nil && perms.ResolvedVisibility != nil && perms.ResolvedVisibility.Tag == "public"
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"album-engine/internal/events"
	"album-engine/internal/mediatypes"
	"album-engine/internal/tasks"
)

// errRejected is returned when the engine refuses an operation up front.
var errRejected = errors.New("nothing to do")

// runWithApp opens the engine, runs fn and shuts down. SIGINT or SIGTERM
// cancels the context passed to fn.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

// importListener receives the completion of the command's own import.
type importListener struct {
	done chan events.ImportCompleted
}

func (l *importListener) ImportCompleted(ev events.ImportCompleted) {
	l.done <- ev
}

func printFailures(w io.Writer, failures []error) {
	for _, err := range failures {
		fmt.Fprintf(w, "  failed: %v\n", err)
	}
}

// awaitImport waits for the listener to be called and prints the outcome.
func awaitImport(ctx context.Context, cmd *cobra.Command, a *app, l *importListener) error {
	err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
		_, ok := ev.(events.ImportCompleted)
		return ok, nil
	})
	if err != nil {
		return err
	}
	res := <-l.done
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d files\n", len(res.Records))
	printFailures(cmd.OutOrStdout(), res.Failures)
	if len(res.Records) == 0 && len(res.Failures) > 0 {
		return fmt.Errorf("import failed")
	}
	return nil
}

func newImportCmd() *cobra.Command {
	var album, copyTo string
	cmd := &cobra.Command{
		Use:   "import PATH...",
		Short: "Import files and directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				l := &importListener{done: make(chan events.ImportCompleted, 1)}
				h := a.eng.Register(l)
				defer a.eng.Unregister(h)

				if !a.eng.ImportFromPaths(args, album, h, tasks.ImportOptions{CopyTo: copyTo}) {
					return errRejected
				}
				return awaitImport(ctx, cmd, a, l)
			})
		},
	}
	cmd.Flags().StringVar(&album, "album", "", "Album to add the imported files to")
	cmd.Flags().StringVar(&copyTo, "copy-to", "", "Copy files into this directory before recording them")
	return cmd
}

func newImportMountCmd() *cobra.Command {
	var album string
	var uid int
	cmd := &cobra.Command{
		Use:   "import-mount MOUNT",
		Short: "Copy every media file on a mounted device into the import directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				paths, err := listMount(ctx, cmd, a, args[0])
				if err != nil {
					return err
				}
				if len(paths) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No media files found")
					return nil
				}

				l := &importListener{done: make(chan events.ImportCompleted, 1)}
				h := a.eng.Register(l)
				defer a.eng.Unregister(h)

				if !a.eng.ImportFromMount(paths, album, h, uid) {
					return errRejected
				}
				return awaitImport(ctx, cmd, a, l)
			})
		},
	}
	cmd.Flags().StringVar(&album, "album", "", "Album to add the imported files to")
	cmd.Flags().IntVar(&uid, "uid", 0, "Owner tag for album membership")
	return cmd
}

func listMount(ctx context.Context, cmd *cobra.Command, a *app, mount string) ([]string, error) {
	if !a.eng.LoadMountList(mount) {
		return nil, errRejected
	}
	var listed events.MountListReady
	err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
		e, ok := ev.(events.MountListReady)
		if ok && e.Mount == mount {
			listed = e
			return true, e.Err
		}
		return false, nil
	})
	return listed.Paths, err
}

func newListMountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-mount MOUNT",
		Short: "List the media files on a mounted device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				paths, err := listMount(ctx, cmd, a, args[0])
				if err != nil {
					return err
				}
				for _, p := range paths {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			})
		},
	}
}

func newTrashCmd() *cobra.Command {
	var permanent bool
	cmd := &cobra.Command{
		Use:   "trash PATH...",
		Short: "Move files to the trash",
		Long: `Move files to the trash. With --permanent the paths must already be in
the trash and are deleted for good. Files that exist but are read-only are
skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				if !a.eng.MoveToTrash(args, permanent, true) {
					return fmt.Errorf("%w: no writable files", errRejected)
				}
				var res events.TrashCompleted
				err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
					e, ok := ev.(events.TrashCompleted)
					res = e
					return ok, nil
				})
				if err != nil {
					return err
				}
				verb := "Moved %d files to the trash\n"
				if res.AlreadyTrash {
					verb = "Deleted %d files\n"
				}
				fmt.Fprintf(cmd.OutOrStdout(), verb, len(res.Paths))
				printFailures(cmd.OutOrStdout(), res.Failures)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&permanent, "permanent", false, "Delete trashed files for good")
	return cmd
}

func newRecoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover PATH...",
		Short: "Restore trashed files to where they were deleted from",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				if !a.eng.RecoverFromTrash(args) {
					return errRejected
				}
				var res events.RecoverCompleted
				err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
					e, ok := ev.(events.RecoverCompleted)
					res = e
					return ok, nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Restored %d files\n", len(res.Records))
				printFailures(cmd.OutOrStdout(), res.Failures)
				return nil
			})
		},
	}
}

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge [PATH...]",
		Short: "Delete trash entries for good",
		Long: `Delete the given trash entries for good. Without arguments, purge every
entry older than TRASH_RETENTION.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				var ok bool
				if len(args) > 0 {
					ok = a.eng.CleanupTrash(args)
				} else {
					ok = a.eng.PurgeExpiredTrash(a.cfg.TrashRetention)
				}
				if !ok {
					return errRejected
				}
				var res events.TrashCleaned
				err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
					e, ok := ev.(events.TrashCleaned)
					res = e
					return ok, nil
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d trash entries\n", len(res.Paths))
				printFailures(cmd.OutOrStdout(), res.Failures)
				return nil
			})
		},
	}
}

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove PATH...",
		Short: "Forget files without touching them on disk",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				if !a.eng.RemoveImages(args) {
					return errRejected
				}
				var res events.ImagesRemoved
				err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
					e, ok := ev.(events.ImagesRemoved)
					res = e
					return ok, e.Err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records\n", len(res.Paths))
				return nil
			})
		},
	}
}

func newReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Drop records whose files no longer exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				if !a.eng.ReloadValidatingAgainstFilesystem() {
					return errRejected
				}
				var res events.ReloadCompleted
				err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
					e, ok := ev.(events.ReloadCompleted)
					res = e
					return ok, e.Err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d valid, %d missing\n", res.Valid, len(res.Missing))
				for _, p := range res.Missing {
					fmt.Fprintf(cmd.OutOrStdout(), "  missing: %s\n", p)
				}
				return nil
			})
		},
	}
}

func newPageCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "page",
		Short: "Print the most recent items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				if !a.eng.LoadFirstPage(count, false) {
					return errRejected
				}
				var res events.FirstPageReady
				err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
					e, ok := ev.(events.FirstPageReady)
					res = e
					return ok, e.Err
				})
				if err != nil {
					return err
				}
				printRecords(cmd.OutOrStdout(), res.Records)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 0, "Number of items (default PAGE_SIZE)")
	return cmd
}

func printRecords(w io.Writer, records []mediatypes.ImageRecord) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CAPTURED\tKIND\tSIZE\tPATH")
	for _, r := range records {
		dims := "-"
		if r.Width > 0 && r.Height > 0 {
			dims = fmt.Sprintf("%dx%d", r.Width, r.Height)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.CaptureTime.Format(time.DateTime), r.Kind, dims, r.Path)
	}
	_ = tw.Flush()
}

func newRotateCmd() *cobra.Command {
	var degrees int
	cmd := &cobra.Command{
		Use:   "rotate PATH",
		Short: "Rotate a picture clockwise in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				path := args[0]
				if !a.eng.RotateImage(path, degrees) {
					return fmt.Errorf("%w: rotation must be a multiple of 90 degrees", errRejected)
				}
				var res events.ImageReady
				err := a.await(ctx, cmd.ErrOrStderr(), func(ev events.Event) (bool, error) {
					e, ok := ev.(events.ImageReady)
					if !ok || e.Path != path {
						return false, nil
					}
					res = e
					return true, e.Err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rotated %s, now %dx%d\n", path, res.Record.Width, res.Record.Height)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&degrees, "degrees", "d", 90, "Clockwise rotation, a multiple of 90")
	return cmd
}

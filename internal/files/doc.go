// Package files opens dataset files for the loader and creates output files
// for exports.
//
// Paths beginning with gs:// are read from Google Cloud Storage; everything
// else is a local path resolved against the source's base directory.
//
// Example usage:
//
//	src := files.NewSource("/srv/data", files.WithLogger(logger))
//	defer src.Close()
//
//	rc, err := src.Open(ctx, "metadata.csv")
//	if err != nil {
//	    return err
//	}
//	defer rc.Close()
package files

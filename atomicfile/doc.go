/*
Package atomicfile replaces a file so that readers see either the old
or the new content, never a partial write.

Data is written to a temporary file (next to the destination or in a
scratch directory on the same filesystem). Close() syncs it and renames
it over the destination. If any Write() failed, Close() removes the
temporary file and returns the first error; the destination is untouched.

	func replace(filePath string, data []byte) error {
		w, err := atomicfile.New(filePath)
		if err != nil {
			return err
		}
		// a no-op after a successful Close()
		defer w.RemoveIfNotClosed()

		_, err = w.Write(data)
		if err != nil {
			return err
		}
		return w.Close()
	}
*/
package atomicfile

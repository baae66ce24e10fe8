// Copyright 2024 The unifhy Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package unifhy

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/unifhy-org/unifhy/recorder"
	"github.com/unifhy-org/unifhy/unifhyerr"
)

// writeRecordSlices appends each completed recorder.Slice as one row to
// <directory>/<component>.<variable>.<tag>.<method>.<window>.csv. This stands
// in for the out-of-scope gridded-field-I/O library: it persists the
// reduced timeseries the Recorder produces as it closes each window, not
// a full NetCDF re-encoding of every cell.
func writeRecordSlices(directory string, slices []recorder.Slice) error {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return unifhyerr.NewIOError("create saving directory "+directory, err)
	}
	for _, s := range slices {
		// the tag keys the file name so each spin-up cycle's records land
		// in their own file, separate from the main run's.
		name := fmt.Sprintf("%s.%s.%s.%s.%d.csv", s.Component, s.Variable, s.Tag, s.Method, s.Window)
		f, err := os.OpenFile(filepath.Join(directory, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return unifhyerr.NewIOError("open record file "+name, err)
		}
		var werr error
		if st, serr := f.Stat(); serr == nil && st.Size() == 0 {
			_, werr = f.WriteString(formatSliceHeader(s))
		}
		if werr == nil {
			_, werr = f.WriteString(formatSliceRow(s) + "\n")
		}
		cerr := f.Close()
		if werr != nil {
			return unifhyerr.NewIOError("write record file "+name, werr)
		}
		if cerr != nil {
			return unifhyerr.NewIOError("close record file "+name, cerr)
		}
	}
	return nil
}

// formatSliceHeader carries the record-file metadata: source
// variable, method, window length, component and simulation identifier.
func formatSliceHeader(s recorder.Slice) string {
	return fmt.Sprintf("# simulation=%s component=%s variable=%s method=%s window=%d\n",
		s.Simulation, s.Component, s.Variable, s.Method, s.Window)
}

func formatSliceRow(s recorder.Slice) string {
	fields := make([]string, 0, len(s.Values)+2)
	fields = append(fields, s.Tag, s.Datetime)
	for _, v := range s.Values {
		fields = append(fields, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return strings.Join(fields, ",")
}

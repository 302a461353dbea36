package serializer

import (
	"bufio"
	"fmt"
	"io"
)

const (
	headerLine             = "structure"
	separatorLine          = "-----"
	binaryMarkerLine       = "[Binary file or not displayable]"
	unreadableMarkerFormat = "[Could not read file: %v]\n"
)

// recordWriter writes the output format. The first write error is kept and
// every later write becomes a no-op.
type recordWriter struct {
	buffered *bufio.Writer
	err      error
}

func newRecordWriter(destination io.Writer) *recordWriter {
	return &recordWriter{buffered: bufio.NewWriter(destination)}
}

func (writer *recordWriter) writeString(text string) {
	if writer.err != nil {
		return
	}
	_, writer.err = writer.buffered.WriteString(text)
}

func (writer *recordWriter) writeHeader() {
	writer.writeString(headerLine + "\n\n")
}

func (writer *recordWriter) beginRecord(relativePath string) {
	writer.writeString(separatorLine + "\n" + relativePath + "\n")
}

func (writer *recordWriter) writeContent(content []byte) {
	if writer.err != nil {
		return
	}
	if _, writer.err = writer.buffered.Write(content); writer.err != nil {
		return
	}
	writer.writeString("\n")
}

func (writer *recordWriter) writeBinaryMarker() {
	writer.writeString(binaryMarkerLine + "\n")
}

func (writer *recordWriter) writeUnreadableMarker(cause error) {
	writer.writeString(fmt.Sprintf(unreadableMarkerFormat, cause))
}

func (writer *recordWriter) flush() error {
	if writer.err != nil {
		return writer.err
	}
	writer.err = writer.buffered.Flush()
	return writer.err
}

package pkg

import "fmt"

var (
	// These variables are here only to show current version. They are set in makefile during build process
	SeqmgrVersion         = "devel"
	GitRevision           = "devel"
	SeqmgrVersionRevision = fmt.Sprintf("%s-%s", SeqmgrVersion, GitRevision)
)

package paths

import (
	"flag"
)

// SetupFilePathFlag creates a new string flag on fs with the passed name. Its
// default is the path to the file found using the Find function, or the bare
// file name if it is not found yet.
func SetupFilePathFlag(fs *flag.FlagSet, fileName, flagName string, flagPtr *string) {
	def := Find(fileName)
	if def == "" {
		def = fileName
	}
	fs.StringVar(flagPtr, flagName, def, "Path to "+fileName)
}

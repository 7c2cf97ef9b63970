package stages

var (
	HashedName = hashedName
	ScriptArgs = scriptArgs
)

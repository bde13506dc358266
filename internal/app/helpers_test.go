package app_test

import "os"

func writeScript(path, src string) error {
	return os.WriteFile(path, []byte(src), 0o644)
}

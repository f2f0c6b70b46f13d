//go:build !linux

package pins

func openCdev(cfg Config) (Provider, error)  { return nil, ErrNotSupported }
func openSysfs(cfg Config) (Provider, error) { return nil, ErrNotSupported }
func openVattu(cfg Config) (Provider, error) { return nil, ErrNotSupported }

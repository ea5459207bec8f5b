package network

// WithSupplicantPath sets the wpa_supplicant configuration file to maintain
func WithSupplicantPath(path string) func(*Station) {
	return func(s *Station) {
		s.SupplicantPath = path
	}
}

// WithSysfsRoots overrides the locations of /sys/class/net and /proc/net/wireless
func WithSysfsRoots(sysClassNet, procWireless string) func(*Station) {
	return func(s *Station) {
		s.sysClassNet = sysClassNet
		s.procWireless = procWireless
	}
}

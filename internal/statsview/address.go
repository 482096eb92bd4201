package statsview

// DefaultAddress is used when no address is configured.
const DefaultAddress = "localhost:18066"

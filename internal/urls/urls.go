package urls

// Reference URLs shown in troubleshooting output.

// ExternalControlAPI documents the device control protocol: keypress,
// launch and query endpoints on port 8060, and the "Control by mobile apps"
// network access setting that must allow it.
const ExternalControlAPI = "https://developer.roku.com/docs/developer-program/dev-tools/external-control-api.md"

package handle

var (
	ContentDisposition = contentDisposition
	StatusOf           = statusOf
	Messages           = messages
)

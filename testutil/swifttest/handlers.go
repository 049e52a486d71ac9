package swifttest

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	containerMetaPrefix = "X-Container-Meta-"
	objectMetaPrefix    = "X-Object-Meta-"
	defaultCDNTTL       = 259200
)

func (s *Server) routes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.record, s.injectFault, s.authorize)

	v1 := r.Group("/v1/:account")
	v1.PUT("/:container", s.putContainer)
	v1.POST("/:container", s.postContainer)
	v1.HEAD("/:container", s.headContainer)
	v1.GET("/:container", s.listContainer)
	v1.DELETE("/:container", s.deleteContainer)

	v1.PUT("/:container/*object", s.putObject)
	v1.GET("/:container/*object", s.getObject)
	v1.HEAD("/:container/*object", s.headObject)
	v1.POST("/:container/*object", s.postObject)
	v1.DELETE("/:container/*object", s.deleteObject)
	v1.Handle("COPY", "/:container/*object", s.copyObject)

	cdn := r.Group("/cdn/:account")
	cdn.PUT("/:container", s.enableCDN)
	cdn.POST("/:container", s.updateCDN)
	cdn.HEAD("/:container", s.headCDN)

	return r
}

// --- middleware ---

func (s *Server) record(c *gin.Context) {
	s.mu.Lock()
	s.requests = append(s.requests, Recorded{Method: c.Request.Method, Path: c.Request.URL.Path})
	s.mu.Unlock()
	c.Next()
}

func (s *Server) injectFault(c *gin.Context) {
	s.mu.Lock()
	fn := s.fault
	s.mu.Unlock()
	if fn == nil {
		c.Next()
		return
	}
	f := fn(c.Request)
	switch {
	case f == nil:
		c.Next()
	case f.Drop:
		c.Abort()
		if conn, _, err := c.Writer.Hijack(); err == nil {
			_ = conn.Close()
		}
	default:
		c.AbortWithStatus(f.Status)
	}
}

func (s *Server) authorize(c *gin.Context) {
	if c.Param("account") != s.account {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	if s.token != "" && c.GetHeader("X-Auth-Token") != s.token {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Next()
}

// --- containers ---

func (s *Server) putContainer(c *gin.Context) {
	name := c.Param("container")
	s.mu.Lock()
	defer s.mu.Unlock()

	status := http.StatusAccepted
	ct, ok := s.containers[name]
	if !ok {
		ct = &container{meta: http.Header{}, objects: map[string]*object{}}
		s.containers[name] = ct
		status = http.StatusCreated
	}
	for k, v := range metaHeaders(c.Request.Header, containerMetaPrefix) {
		ct.meta[k] = v
	}
	c.Status(status)
}

func (s *Server) postContainer(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.containers[c.Param("container")]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	for k, v := range metaHeaders(c.Request.Header, containerMetaPrefix) {
		ct.meta[k] = v
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) headContainer(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.containers[c.Param("container")]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("X-Container-Object-Count", strconv.Itoa(len(ct.objects)))
	c.Header("X-Container-Bytes-Used", strconv.Itoa(ct.bytesUsed()))
	for k, v := range ct.meta {
		c.Header(k, strings.Join(v, ","))
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listContainer(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.containers[c.Param("container")]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	names := ct.names(c.Query("prefix"), c.Query("marker"), limit)
	c.Header("X-Container-Object-Count", strconv.Itoa(len(ct.objects)))
	if len(names) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(strings.Join(names, "\n")+"\n"))
}

func (s *Server) deleteContainer(c *gin.Context) {
	name := c.Param("container")
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, ok := s.containers[name]
	switch {
	case !ok:
		c.Status(http.StatusNotFound)
	case len(ct.objects) > 0:
		c.String(http.StatusConflict, "There was a conflict when trying to complete your request.")
	default:
		delete(s.containers, name)
		delete(s.cdn, name)
		c.Status(http.StatusNoContent)
	}
}

// --- objects ---

// lookup resolves the container and object name, writing 400/404 when it
// cannot. Callers hold mu.
func (s *Server) lookup(c *gin.Context) (*container, string, bool) {
	name := strings.TrimPrefix(c.Param("object"), "/")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return nil, "", false
	}
	ct, ok := s.containers[c.Param("container")]
	if !ok {
		c.Status(http.StatusNotFound)
		return nil, "", false
	}
	return ct, name, true
}

func (s *Server) putObject(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, name, ok := s.lookup(c)
	if !ok {
		return
	}
	o := newObject(data, c.GetHeader("Content-Type"), metaHeaders(c.Request.Header, objectMetaPrefix))
	if want := c.GetHeader("ETag"); want != "" && want != o.etag {
		c.Status(http.StatusUnprocessableEntity)
		return
	}
	ct.objects[name] = o
	c.Header("ETag", o.etag)
	c.Status(http.StatusCreated)
}

func (s *Server) getObject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.object(c)
	if !ok {
		return
	}
	writeObjectHeaders(c, o)
	c.Data(http.StatusOK, o.contentType, o.data)
}

func (s *Server) headObject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.object(c)
	if !ok {
		return
	}
	writeObjectHeaders(c, o)
	c.Header("Content-Type", o.contentType)
	c.Header("Content-Length", strconv.Itoa(len(o.data)))
	c.Status(http.StatusOK)
}

func (s *Server) postObject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.object(c)
	if !ok {
		return
	}
	o.meta = metaHeaders(c.Request.Header, objectMetaPrefix)
	c.Status(http.StatusAccepted)
}

func (s *Server) deleteObject(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ct, name, ok := s.lookup(c)
	if !ok {
		return
	}
	if _, found := ct.objects[name]; !found {
		c.Status(http.StatusNotFound)
		return
	}
	delete(ct.objects, name)
	c.Status(http.StatusNoContent)
}

func (s *Server) copyObject(c *gin.Context) {
	dst, err := url.PathUnescape(strings.TrimPrefix(c.GetHeader("Destination"), "/"))
	dstContainer, dstName, found := strings.Cut(dst, "/")
	if err != nil || !found || dstContainer == "" || dstName == "" {
		c.Status(http.StatusPreconditionFailed)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.object(c)
	if !ok {
		return
	}
	target, ok := s.containers[dstContainer]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	meta := src.meta.Clone()
	for k, v := range metaHeaders(c.Request.Header, objectMetaPrefix) {
		meta[k] = v
	}
	o := newObject(src.data, src.contentType, meta)
	target.objects[dstName] = o
	c.Header("ETag", o.etag)
	c.Status(http.StatusCreated)
}

// object resolves an existing object, writing 400/404 when it cannot.
// Callers hold mu.
func (s *Server) object(c *gin.Context) (*object, bool) {
	ct, name, ok := s.lookup(c)
	if !ok {
		return nil, false
	}
	o, found := ct.objects[name]
	if !found {
		c.Status(http.StatusNotFound)
		return nil, false
	}
	return o, true
}

func writeObjectHeaders(c *gin.Context, o *object) {
	c.Header("ETag", o.etag)
	c.Header("Last-Modified", o.modified.Format(http.TimeFormat))
	for k, v := range o.meta {
		c.Header(k, strings.Join(v, ","))
	}
}

// --- CDN ---

func (s *Server) enableCDN(c *gin.Context) {
	name := c.Param("container")
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.containers[name]; !ok {
		c.Status(http.StatusNotFound)
		return
	}
	status := http.StatusAccepted
	e, ok := s.cdn[name]
	if !ok {
		e = &cdnEntry{ttl: defaultCDNTTL}
		s.cdn[name] = e
		status = http.StatusCreated
	}
	e.enabled = true
	applyCDNHeaders(c, e)
	c.Status(status)
}

func (s *Server) updateCDN(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cdn[c.Param("container")]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	applyCDNHeaders(c, e)
	c.Status(http.StatusNoContent)
}

func (s *Server) headCDN(c *gin.Context) {
	name := c.Param("container")
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cdn[name]
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}
	enabled := "False"
	if e.enabled {
		enabled = "True"
	}
	c.Header("X-CDN-Enabled", enabled)
	c.Header("X-TTL", strconv.Itoa(e.ttl))
	c.Header("X-CDN-URI", "http://cdn.swifttest.local/"+name)
	c.Header("X-CDN-SSL-URI", "https://cdn.swifttest.local/"+name)
	c.Status(http.StatusNoContent)
}

func applyCDNHeaders(c *gin.Context, e *cdnEntry) {
	if v := c.GetHeader("X-TTL"); v != "" {
		if ttl, err := strconv.Atoi(v); err == nil {
			e.ttl = ttl
		}
	}
	if v := c.GetHeader("X-CDN-Enabled"); v != "" {
		e.enabled = strings.EqualFold(v, "true")
	}
}

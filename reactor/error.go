/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package reactor

import "github.com/sabouaram/reactor/errors"

const (
	ErrorMethodLenLimit errors.CodeError = iota + errors.MinAvailable
	ErrorPathLenLimit
	ErrorQueryLenLimit
	ErrorVersionLenLimit
	ErrorUnsupportedProtocol
	ErrorHeaderNameLenLimit
	ErrorHeaderValueLenLimit
	ErrorHeadersCountLimit
	ErrorPipeliningReqLimit
	ErrorEmptyHeaderName
	ErrorMissingHeaderColon
	ErrorContentLengthParse
	ErrorTryLoadContentWhenNoContentLen
	ErrorStream
	ErrorConfigValidate
	ErrorListen
	ErrorTLSBuild
	ErrorRequestLineMalformed
)

var isCodeError = false

// IsCodeError reports whether this package's error codes have already been
// registered, guarding against double registration when the package is
// imported from more than one place.
func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorMethodLenLimit)
	errors.RegisterIdFctMessage(ErrorMethodLenLimit, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorMethodLenLimit:
		return "method token exceeds configured length limit"
	case ErrorPathLenLimit:
		return "path exceeds configured length limit"
	case ErrorQueryLenLimit:
		return "query exceeds configured length limit"
	case ErrorVersionLenLimit:
		return "HTTP version field is not 8 bytes"
	case ErrorUnsupportedProtocol:
		return "HTTP version is not 1.0 or 1.1"
	case ErrorHeaderNameLenLimit:
		return "header name exceeds configured length limit"
	case ErrorHeaderValueLenLimit:
		return "header value exceeds configured length limit"
	case ErrorHeadersCountLimit:
		return "header count exceeds configured limit"
	case ErrorPipeliningReqLimit:
		return "pipelined requests per read exceed configured limit"
	case ErrorEmptyHeaderName:
		return "header line has an empty name"
	case ErrorMissingHeaderColon:
		return "header line is missing its colon separator"
	case ErrorContentLengthParse:
		return "Content-Length header is not a valid non-negative integer"
	case ErrorTryLoadContentWhenNoContentLen:
		return "body callback registered but request declared no Content-Length"
	case ErrorStream:
		return "stream read or write failed"
	case ErrorConfigValidate:
		return "reactor configuration is not valid"
	case ErrorListen:
		return "failed to open listener"
	case ErrorTLSBuild:
		return "failed to build TLS configuration"
	case ErrorRequestLineMalformed:
		return "request line ended before method, path or version was complete"
	}

	return ""
}

// asCodeError maps a parser-local ParseErrorKind onto the package's
// registered errors.CodeError taxonomy; unmapped kinds yield
// errors.UnknownError.
func asCodeError(kind ParseErrorKind) errors.CodeError {
	switch kind {
	case ParseErrorRequestLineMalformed:
		return ErrorRequestLineMalformed
	case ParseErrorMethodLenLimit:
		return ErrorMethodLenLimit
	case ParseErrorPathLenLimit:
		return ErrorPathLenLimit
	case ParseErrorQueryLenLimit:
		return ErrorQueryLenLimit
	case ParseErrorWrongVersionLen:
		return ErrorVersionLenLimit
	case ParseErrorUnsupportedProtocol:
		return ErrorUnsupportedProtocol
	case ParseErrorHeaderNameLenLimit:
		return ErrorHeaderNameLenLimit
	case ParseErrorHeaderValueLenLimit:
		return ErrorHeaderValueLenLimit
	case ParseErrorHeadersCountLimit:
		return ErrorHeadersCountLimit
	case ParseErrorEmptyHeaderName:
		return ErrorEmptyHeaderName
	case ParseErrorMissingHeaderColon:
		return ErrorMissingHeaderColon
	case ParseErrorContentLengthParse:
		return ErrorContentLengthParse
	default:
		return errors.UnknownError
	}
}
